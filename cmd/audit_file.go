// File: cmd/audit_file.go
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/uiprobe/internal/a11y"
	"github.com/xkilldash9x/uiprobe/internal/audit"
	"github.com/xkilldash9x/uiprobe/internal/dom"
	"github.com/xkilldash9x/uiprobe/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// staticViewport labels reports produced from a file instead of a rendered page.
const staticViewport = "static"

// newAuditFileCmd audits a local HTML document without launching a browser.
// Layout-dependent checks see no geometry, so only markup rules fire.
func newAuditFileCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit-file <path.html>",
		Short: "Audit a local HTML file for accessibility issues and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgFile)
			if err != nil {
				return err
			}
			// stdout carries the report, so logs go to stderr.
			observability.Initialize(cfg.Logger, zapcore.Lock(os.Stderr))
			logger := observability.GetLogger()

			path := args[0]
			f, err := afero.NewOsFs().Open(path)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", path, err)
			}
			defer f.Close()

			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}
			snap, err := dom.FromHTML(f, "file://"+filepath.ToSlash(abs))
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", path, err)
			}

			route := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			// Nothing can be remediated in a file, so no engine is attached.
			auditor := audit.NewAuditor(logger, a11y.NewBattery(logger), nil, cfg.Accessibility)
			report := auditor.AuditSnapshot(snap, route, staticViewport)
			logger.Info("Audited file",
				zap.String("path", path),
				zap.Float64("score", report.Score),
				zap.Int("issues", report.Summary.Total))

			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode report: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	return cmd
}
