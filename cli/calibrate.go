// Offline calibration report.

package cli

import (
	"fmt"

	"github.com/sagevault/sage/confidence"
)

// Calibrate reads a JSONL file of {type, predicted, actual} records and
// prints per-type calibration quality with recommended thresholds.
func Calibrate(path string, bins int, showCurve bool) error {
	records, err := confidence.LoadRecords(path)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no calibration records in %s", path)
	}

	fmt.Printf("%d records\n\n", len(records))
	fmt.Printf("%-12s %6s %8s %8s %10s\n", "TYPE", "COUNT", "BRIER", "ECE", "THRESHOLD")
	for _, tc := range confidence.CalibrateByType(records, bins) {
		fmt.Printf("%-12s %6d %8.4f %8.4f %10.2f\n",
			tc.Type, tc.Count, tc.Brier, tc.ECE, tc.RecommendedThreshold)
	}

	if showCurve {
		fmt.Println("\nCalibration curve (predicted vs actual):")
		for _, point := range confidence.CalibrationCurve(records, bins) {
			fmt.Printf("  %.2f -> %.2f  (%d records)\n",
				point.PredictedMean, point.ActualMean, point.Count)
		}
	}
	return nil
}
