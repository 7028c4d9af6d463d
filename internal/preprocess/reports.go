package preprocess

import "github.com/wonny/forecaster/internal/contracts"

// ReportSink receives validation reports; *contracts.GlobalContext satisfies it
type ReportSink interface {
	AddReport(seriesID, status, detail string)
}

// seriesReports buffers one series' reports so concurrent preparation
// can flush them in catalog order
type seriesReports []contracts.ValidationReport

func (r *seriesReports) AddReport(seriesID, status, detail string) {
	*r = append(*r, contracts.ValidationReport{SeriesID: seriesID, Status: status, Detail: detail})
}

func (r seriesReports) flush(sink ReportSink) {
	for _, report := range r {
		sink.AddReport(report.SeriesID, report.Status, report.Detail)
	}
}
