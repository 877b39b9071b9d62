package services

import (
	"fmt"
	"io"
	"os"
)

// ReportService renders batch results as a human-readable coefficient report
type ReportService struct{}

// NewReportService creates a new report service
func NewReportService() *ReportService {
	return &ReportService{}
}

// WriteReport renders one line per band for each successful scene and an
// explicit failure line for skipped scenes. Results are expected in ascending
// acquisition time, which ProcessBatch guarantees.
func (s *ReportService) WriteReport(w io.Writer, batch *BatchResult) error {
	for _, result := range batch.Results {
		scene := result.Scene
		if result.Failed() {
			_, err := fmt.Fprintf(w, "%s %s FAILED %s: %v\n",
				scene.SceneID, scene.AcquiredAt.Format("2006-01-02"), result.FailureKind, result.Err)
			if err != nil {
				return fmt.Errorf("failed to write report line: %w", err)
			}
			continue
		}

		for i, coeff := range result.Coefficients {
			_, err := fmt.Fprintf(w, "%s %s band %02d gain %.6f offset %.6f\n",
				scene.SceneID, scene.AcquiredAt.Format("2006-01-02"), i+1, coeff.Gain, coeff.Offset)
			if err != nil {
				return fmt.Errorf("failed to write report line: %w", err)
			}
		}
	}

	_, err := fmt.Fprintf(w, "\ntotal %d succeeded %d failed %d duration %s\n",
		batch.Total, batch.Succeeded, batch.Failed, batch.Duration.Round(0))
	if err != nil {
		return fmt.Errorf("failed to write report summary: %w", err)
	}

	return nil
}

// SaveReport writes the report to a file, replacing any previous run's report.
func (s *ReportService) SaveReport(path string, batch *BatchResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if err := s.WriteReport(f, batch); err != nil {
		return err
	}

	return f.Sync()
}
