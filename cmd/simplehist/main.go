// Command simplehist builds a 2D histogram with an equidistant x axis
// and an irregular y axis, fills one weighted entry, fits a
// two-parameter surface to the filled bins and writes the histogram to
// a parquet file.
package main

import (
	"fmt"
	"log"

	"github.com/y-v-p/root/hist"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("simplehist: ")

	// An x axis with equidistant bins and a y axis with irregular
	// binning.
	xAxis := hist.Regular(100, 0, 1)
	yAxis := hist.Irregular(0, 1, 2, 3, 10)
	h := hist.NewH2D(xAxis, yAxis)

	// Fill weight 1 at the coordinate (0.01, 1.02).
	h.Fill(0.01, 1.02, 1)

	res, err := hist.FitH2(h, func(x, y float64, par []float64) float64 {
		return par[0]*x*x + (par[1]-y)*y
	}, []float64{0, 1})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("fit: params %.4f chi2 %.3g ndf %d converged %v\n",
		res.Params, res.Chi2, res.NDF, res.Converged)

	if err := hist.WriteH2("hist.parquet", h); err != nil {
		log.Fatal(err)
	}
	fmt.Println("wrote hist.parquet")
}
