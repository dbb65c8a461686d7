package presenter

import (
	"fmt"
	"io"

	"icb-classifier-go/internal/dataset"
	"icb-classifier-go/internal/pipeline"

	"github.com/fatih/color"
)

// Console prints run summaries with coloured headings.
type Console struct {
	w       io.Writer
	heading func(a ...any) string
	good    func(a ...any) string
	bad     func(a ...any) string
}

func NewConsole(w io.Writer) *Console {
	return &Console{
		w:       w,
		heading: color.New(color.FgCyan, color.Bold).SprintFunc(),
		good:    color.New(color.FgGreen).SprintFunc(),
		bad:     color.New(color.FgRed).SprintFunc(),
	}
}

// Report prints AUC, confusion matrix, classification report and the top
// ranked features of a finished run.
func (c *Console) Report(res *pipeline.Result, names [dataset.NumClasses]string, top int) {
	ev := res.Evaluation
	fmt.Fprintf(c.w, "%s %s\n\n", c.heading("run"), res.RunID)

	auc := fmt.Sprintf("%.4f", ev.AUC)
	if ev.AUC >= 0.5 {
		auc = c.good(auc)
	} else {
		auc = c.bad(auc)
	}
	fmt.Fprintf(c.w, "%s %s\n", c.heading("ROC-AUC (one-vs-rest, macro):"), auc)
	for k, v := range ev.ClassAUC {
		fmt.Fprintf(c.w, "  %-6s %.4f\n", names[k], v)
	}

	fmt.Fprintf(c.w, "\n%s\n", c.heading("confusion matrix (rows actual, columns predicted)"))
	fmt.Fprintf(c.w, "%8s", "")
	for _, n := range names {
		fmt.Fprintf(c.w, "%8s", n)
	}
	fmt.Fprintln(c.w)
	for i, n := range names {
		fmt.Fprintf(c.w, "%8s", n)
		for j := range names {
			fmt.Fprintf(c.w, "%8d", int(ev.Confusion.At(i, j)))
		}
		fmt.Fprintln(c.w)
	}

	fmt.Fprintf(c.w, "\n%s\n", c.heading("classification report"))
	fmt.Fprint(c.w, ev.Report.Format(names))

	if len(res.Ranking) == 0 {
		return
	}
	if top <= 0 || top > len(res.Ranking) {
		top = len(res.Ranking)
	}
	fmt.Fprintf(c.w, "\n%s\n", c.heading(fmt.Sprintf("top %d features by mean |attribution|", top)))
	fmt.Fprintf(c.w, "  %d explained rows, %d background rows\n", len(res.ExplainedIdx), len(res.BackgroundIdx))
	for i, r := range res.Ranking[:top] {
		fmt.Fprintf(c.w, "%4d  %-20s %.6f\n", i+1, featureName(r), r.Score)
	}
}

// Failure prints err under a red heading.
func (c *Console) Failure(err error) {
	fmt.Fprintf(c.w, "%s %v\n", c.bad("run failed:"), err)
}
