package xval

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Curve is a ROC curve: paired background and signal efficiencies with
// FPR ascending from 0 to 1.
type Curve struct {
	FPR []float64
	TPR []float64
}

// rocCurve computes the weighted ROC of classifier scores, where class
// true marks signal and larger scores are more signal-like. It returns
// the curve and its integral.
func rocCurve(scores []float64, classes []bool, weights []float64) (Curve, float64, error) {
	n := len(scores)
	if len(classes) != n || (weights != nil && len(weights) != n) {
		return Curve{}, 0, errors.New("xval: misaligned roc inputs")
	}
	var hasSig, hasBkg bool
	for _, c := range classes {
		if c {
			hasSig = true
		} else {
			hasBkg = true
		}
	}
	if !hasSig || !hasBkg {
		return Curve{}, 0, errors.New("xval: roc needs scores from both classes")
	}

	ord := make([]int, n)
	for i := range ord {
		ord[i] = i
	}
	sort.Slice(ord, func(i, j int) bool { return scores[ord[i]] < scores[ord[j]] })
	ys := make([]float64, n)
	cs := make([]bool, n)
	var ws []float64
	if weights != nil {
		ws = make([]float64, n)
	}
	for i, idx := range ord {
		ys[i] = scores[idx]
		cs[i] = classes[idx]
		if weights != nil {
			ws[i] = weights[idx]
		}
	}

	tpr, fpr, _ := stat.ROC(nil, ys, cs, ws)
	// Orient the curve with FPR ascending so the trapezoid integral and
	// TPRAt see a monotone axis.
	if fpr[0] > fpr[len(fpr)-1] {
		for i, j := 0, len(fpr)-1; i < j; i, j = i+1, j-1 {
			fpr[i], fpr[j] = fpr[j], fpr[i]
			tpr[i], tpr[j] = tpr[j], tpr[i]
		}
	}
	auc := integrate.Trapezoidal(fpr, tpr)
	return Curve{FPR: fpr, TPR: tpr}, auc, nil
}

// TPRAt returns the signal efficiency at the given background
// efficiency, linearly interpolated along the curve. Vertical curve
// segments resolve to their upper point.
func (c Curve) TPRAt(fpr float64) float64 {
	if len(c.FPR) == 0 {
		return 0
	}
	if fpr <= c.FPR[0] {
		return c.TPR[0]
	}
	for i := 1; i < len(c.FPR); i++ {
		if c.FPR[i] >= fpr {
			f0, f1 := c.FPR[i-1], c.FPR[i]
			t0, t1 := c.TPR[i-1], c.TPR[i]
			if f1 == f0 {
				return t1
			}
			return t0 + (t1-t0)*(fpr-f0)/(f1-f0)
		}
	}
	return c.TPR[len(c.TPR)-1]
}

// avgGridPoints is the size of the fixed false-positive grid averaged
// curves are sampled on.
const avgGridPoints = 101

// avgCurve averages the given curves on a fixed background-efficiency
// grid so folds with different test sizes contribute equally.
func avgCurve(curves []Curve) Curve {
	fpr := make([]float64, avgGridPoints)
	tpr := make([]float64, avgGridPoints)
	for i := range fpr {
		fpr[i] = float64(i) / float64(avgGridPoints-1)
	}
	if len(curves) == 0 {
		return Curve{FPR: fpr, TPR: tpr}
	}
	for _, c := range curves {
		for i, f := range fpr {
			tpr[i] += c.TPRAt(f)
		}
	}
	for i := range tpr {
		tpr[i] /= float64(len(curves))
	}
	return Curve{FPR: fpr, TPR: tpr}
}
