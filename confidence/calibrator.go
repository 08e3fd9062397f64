// Offline calibration over logged (predicted, actual) pairs.
//
// The calibrator performs no online decisioning: its outputs (per-type
// thresholds) are read back as configuration by the estimator and the
// retrieval engine's fallback trigger.

package confidence

import (
	"math"
	"sort"
)

// Record is one logged prediction. Actual is a realized outcome in [0,1]
// (usually 0 or 1). Type groups records for per-type calibration.
type Record struct {
	Type      string  `json:"type"`
	Predicted float64 `json:"predicted"`
	Actual    float64 `json:"actual"`
}

// DefaultECEBins is the stock bin count for ECE and calibration curves.
const DefaultECEBins = 10

// Threshold recommendation breakpoints, keyed on per-type ECE.
const (
	badECE      = 0.15
	mediocreECE = 0.10

	thresholdForBadECE      = 0.7
	thresholdForMediocreECE = 0.6
	thresholdForGoodECE     = 0.5
)

// BrierScore computes the mean squared error between predicted and actual.
// Empty input returns the worst case (1.0) rather than NaN.
func BrierScore(records []Record) float64 {
	if len(records) == 0 {
		return 1.0
	}

	sum := 0.0
	for _, r := range records {
		diff := r.Predicted - r.Actual
		sum += diff * diff
	}
	return sum / float64(len(records))
}

// ECE computes the Expected Calibration Error using numBins equal-width
// buckets over [0,1]. Within each non-empty bucket the gap
// |mean(predicted) - mean(actual)| is weighted by the bucket's share of
// samples; empty buckets contribute zero. Empty input returns 1.0.
func ECE(records []Record, numBins int) float64 {
	if len(records) == 0 {
		return 1.0
	}
	if numBins <= 0 {
		numBins = DefaultECEBins
	}

	bins := binRecords(records, numBins)

	total := float64(len(records))
	ece := 0.0
	for _, bin := range bins {
		if bin.count == 0 {
			continue
		}
		gap := math.Abs(bin.predictedMean() - bin.actualMean())
		ece += gap * float64(bin.count) / total
	}
	return ece
}

// TypeCalibration is the per-type calibration report.
type TypeCalibration struct {
	Type                 string  `json:"type"`
	Count                int     `json:"count"`
	Brier                float64 `json:"brier"`
	ECE                  float64 `json:"ece"`
	RecommendedThreshold float64 `json:"recommended_threshold"`
}

// CalibrateByType groups records by type, computes Brier and ECE per type,
// and recommends a confidence threshold for each using fixed breakpoints.
func CalibrateByType(records []Record, numBins int) []TypeCalibration {
	byType := make(map[string][]Record)
	for _, r := range records {
		byType[r.Type] = append(byType[r.Type], r)
	}

	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	out := make([]TypeCalibration, 0, len(types))
	for _, t := range types {
		group := byType[t]
		ece := ECE(group, numBins)
		out = append(out, TypeCalibration{
			Type:                 t,
			Count:                len(group),
			Brier:                BrierScore(group),
			ECE:                  ece,
			RecommendedThreshold: RecommendThreshold(ece),
		})
	}
	return out
}

// RecommendThreshold maps a type's ECE to a confidence threshold.
func RecommendThreshold(ece float64) float64 {
	switch {
	case ece > badECE:
		return thresholdForBadECE
	case ece > mediocreECE:
		return thresholdForMediocreECE
	default:
		return thresholdForGoodECE
	}
}

// CurvePoint is one non-empty bucket of a calibration curve.
type CurvePoint struct {
	PredictedMean float64 `json:"predicted_mean"`
	ActualMean    float64 `json:"actual_mean"`
	Count         int     `json:"count"`
}

// CalibrationCurve returns per-bucket means for diagnostic plotting,
// omitting empty buckets.
func CalibrationCurve(records []Record, numBins int) []CurvePoint {
	if numBins <= 0 {
		numBins = DefaultECEBins
	}

	bins := binRecords(records, numBins)

	var points []CurvePoint
	for _, bin := range bins {
		if bin.count == 0 {
			continue
		}
		points = append(points, CurvePoint{
			PredictedMean: bin.predictedMean(),
			ActualMean:    bin.actualMean(),
			Count:         bin.count,
		})
	}
	return points
}

type bucket struct {
	predictedSum float64
	actualSum    float64
	count        int
}

func (b bucket) predictedMean() float64 { return b.predictedSum / float64(b.count) }
func (b bucket) actualMean() float64    { return b.actualSum / float64(b.count) }

// binRecords assigns each record to an equal-width bucket over [0,1].
// A prediction of exactly 1.0 lands in the last bucket.
func binRecords(records []Record, numBins int) []bucket {
	bins := make([]bucket, numBins)
	for _, r := range records {
		idx := int(r.Predicted * float64(numBins))
		if idx >= numBins {
			idx = numBins - 1
		}
		if idx < 0 {
			idx = 0
		}
		bins[idx].predictedSum += r.Predicted
		bins[idx].actualSum += r.Actual
		bins[idx].count++
	}
	return bins
}
