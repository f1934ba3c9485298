// internal/reporting/junit.go
package reporting

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/xkilldash9x/uiprobe/internal/a11y"
)

// JUnitRenderer exposes the run as JUnit XML so CI systems can gate on it.
// Each audited unit is a suite with one case per detector category.
type JUnitRenderer struct{}

func (JUnitRenderer) Format() string { return "junit" }
func (JUnitRenderer) Path() string   { return "junit.xml" }

type junitCase struct {
	class, name string
	// failures and errors hold one line per problem; both empty means pass.
	failures []string
	errors   []string
}

type junitSuite struct {
	name  string
	cases []junitCase
}

func (JUnitRenderer) Render(m *MasterReport) ([]byte, error) {
	var suites []junitSuite

	for _, r := range m.Audits {
		s := junitSuite{name: "accessibility." + r.Key()}
		for _, cat := range a11y.Categories {
			c := junitCase{class: "accessibility." + r.Route + "." + r.Viewport, name: string(cat)}
			for _, is := range r.Issues {
				if is.Category == cat {
					c.failures = append(c.failures, fmt.Sprintf("[%s] %s %s: %s", is.Impact, is.ID, is.Target.Selector, is.Description))
				}
			}
			s.cases = append(s.cases, c)
		}
		suites = append(suites, s)
	}

	if len(m.Runtime) > 0 {
		s := junitSuite{name: "runtime"}
		for _, r := range m.Runtime {
			c := junitCase{class: "runtime", name: r.Route}
			for _, e := range r.Console {
				if e.IsError() {
					c.failures = append(c.failures, e.Source+": "+oneLine(e.Text))
				}
			}
			for _, f := range r.FailedRequests {
				c.failures = append(c.failures, fmt.Sprintf("request %s %s failed: %s", f.Method, f.URL, failureReason(f.Status, f.ErrorText)))
			}
			if r.Status >= 400 {
				c.failures = append(c.failures, fmt.Sprintf("document answered HTTP %d", r.Status))
			}
			s.cases = append(s.cases, c)
		}
		suites = append(suites, s)
	}

	if len(m.Navigation) > 0 {
		s := junitSuite{name: "navigation"}
		for _, r := range m.Navigation {
			c := junitCase{class: "navigation", name: r.Route}
			for _, d := range r.Defects {
				c.failures = append(c.failures, fmt.Sprintf("[%s] %s %s: %s", d.Severity, d.Kind, d.URL, d.Detail))
			}
			s.cases = append(s.cases, c)
		}
		suites = append(suites, s)
	}

	if len(m.UI) > 0 {
		s := junitSuite{name: "ui"}
		for _, r := range m.UI {
			c := junitCase{class: "ui." + r.Route, name: r.Viewport}
			for _, f := range r.Findings {
				c.failures = append(c.failures, fmt.Sprintf("%s %s: %s", f.Rule, f.Selector, f.Description))
			}
			s.cases = append(s.cases, c)
		}
		suites = append(suites, s)
	}

	if len(m.Coverage.Errored) > 0 {
		s := junitSuite{name: "coverage"}
		for _, u := range m.Coverage.Errored {
			s.cases = append(s.cases, junitCase{class: "coverage." + u.Phase, name: u.Unit, errors: []string{u.Error}})
		}
		suites = append(suites, s)
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("testsuites")
	root.CreateAttr("name", ToolName)

	var tests, failures, errs int
	for _, s := range suites {
		el := root.CreateElement("testsuite")
		el.CreateAttr("name", s.name)
		var sf, se int
		for _, c := range s.cases {
			tc := el.CreateElement("testcase")
			tc.CreateAttr("classname", c.class)
			tc.CreateAttr("name", c.name)
			if len(c.failures) > 0 {
				f := tc.CreateElement("failure")
				f.CreateAttr("message", fmt.Sprintf("%d problem(s)", len(c.failures)))
				f.SetText(strings.Join(c.failures, "\n"))
				sf++
			}
			if len(c.errors) > 0 {
				e := tc.CreateElement("error")
				e.CreateAttr("message", c.errors[0])
				e.SetText(strings.Join(c.errors, "\n"))
				se++
			}
		}
		el.CreateAttr("tests", strconv.Itoa(len(s.cases)))
		el.CreateAttr("failures", strconv.Itoa(sf))
		el.CreateAttr("errors", strconv.Itoa(se))
		tests += len(s.cases)
		failures += sf
		errs += se
	}
	root.CreateAttr("tests", strconv.Itoa(tests))
	root.CreateAttr("failures", strconv.Itoa(failures))
	root.CreateAttr("errors", strconv.Itoa(errs))

	doc.Indent(2)
	return doc.WriteToBytes()
}

func failureReason(status int64, text string) string {
	if text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}
