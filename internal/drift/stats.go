package drift

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ksTest runs the two-sample Kolmogorov-Smirnov test and returns the
// statistic and its asymptotic p-value.
func ksTest(ref, cur []float64) (statistic, pValue float64) {
	x := append([]float64(nil), ref...)
	y := append([]float64(nil), cur...)
	sort.Float64s(x)
	sort.Float64s(y)

	d := stat.KolmogorovSmirnov(x, nil, y, nil)

	n := float64(len(x))
	m := float64(len(y))
	en := math.Sqrt(n * m / (n + m))
	return d, kolmogorovSurvival((en + 0.12 + 0.11/en) * d)
}

// kolmogorovSurvival evaluates the survival function of the Kolmogorov
// limiting distribution, Q(lambda) = 2 * sum_{j>=1} (-1)^{j-1} exp(-2 j^2 lambda^2).
func kolmogorovSurvival(lambda float64) float64 {
	if lambda <= 0 {
		return 1
	}
	var sum float64
	sign := 1.0
	for j := 1; j <= 100; j++ {
		term := sign * math.Exp(-2*float64(j*j)*lambda*lambda)
		sum += term
		if math.Abs(term) < 1e-12 {
			break
		}
		sign = -sign
	}
	p := 2 * sum
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

// chiSquareTest runs a chi-square independence test on a 2xK contingency
// table of category counts from the reference and current samples.
// Categories with zero support in both samples are dropped first; if fewer
// than two categories survive the test is inconclusive and reported as
// p-value 1 rather than an error.
func chiSquareTest(ref, cur []float64) (statistic, pValue float64, inconclusive bool) {
	counts := map[float64][2]float64{}
	for _, v := range ref {
		c := counts[v]
		c[0]++
		counts[v] = c
	}
	for _, v := range cur {
		c := counts[v]
		c[1]++
		counts[v] = c
	}

	var refRow, curRow []float64
	for _, c := range counts {
		if c[0]+c[1] == 0 {
			continue
		}
		refRow = append(refRow, c[0])
		curRow = append(curRow, c[1])
	}
	if len(refRow) < 2 {
		return 0, 1, true
	}

	var refTotal, curTotal float64
	colTotals := make([]float64, len(refRow))
	for i := range refRow {
		refTotal += refRow[i]
		curTotal += curRow[i]
		colTotals[i] = refRow[i] + curRow[i]
	}
	total := refTotal + curTotal
	if refTotal == 0 || curTotal == 0 {
		return 0, 1, true
	}

	dof := len(refRow) - 1
	// Yates continuity correction on 2x2 tables, matching the convention
	// of standard contingency-test implementations.
	correct := dof == 1

	var chi2 float64
	for i := range refRow {
		for row, observed := range []float64{refRow[i], curRow[i]} {
			rowTotal := refTotal
			if row == 1 {
				rowTotal = curTotal
			}
			expected := rowTotal * colTotals[i] / total
			if expected == 0 {
				continue
			}
			diff := math.Abs(observed - expected)
			if correct {
				diff = math.Max(0, diff-0.5)
			}
			chi2 += diff * diff / expected
		}
	}

	dist := distuv.ChiSquared{K: float64(dof)}
	return chi2, dist.Survival(chi2), false
}
