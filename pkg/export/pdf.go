package export

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"canscope/pkg/can"

	"github.com/jung-kurt/gofpdf"
)

// ErrNoSampleRate is returned when timestamps cannot be computed.
var ErrNoSampleRate = errors.New("no sample rate")

// maxReportRows limits the message table of a report.
const maxReportRows = 2000

// Report is the content of a PDF decode report.
type Report struct {
	// Source names the decoded capture.
	Source   string
	Settings can.Settings
	Messages []can.Message
	Errors   []can.DecodeError
}

// SavePDF renders the report into a PDF file.
func SavePDF(rep Report, out string) error {
	pdf, err := renderPDF(rep)
	if err != nil {
		return err
	}
	return pdf.OutputFileAndClose(out)
}

// WritePDF renders the report to w.
func WritePDF(rep Report, w io.Writer) error {
	pdf, err := renderPDF(rep)
	if err != nil {
		return err
	}
	return pdf.Output(w)
}

func renderPDF(rep Report) (*gofpdf.Fpdf, error) {
	if rep.Settings.SampleRate == 0 {
		return nil, ErrNoSampleRate
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("CAN Decode Report", false)
	pdf.SetAuthor("canscope", false)
	pdf.SetCreator("canscope", false)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	addTitle(pdf, "CAN Decode Report")
	addSummarySection(pdf, rep)
	addMessageSection(pdf, rep)
	addErrorSection(pdf, rep)

	if pdf.Err() {
		return nil, pdf.Error()
	}
	return pdf, nil
}

func addTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)
}

func addSummarySection(pdf *gofpdf.Fpdf, rep Report) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Summary")
	pdf.Ln(8)

	var st can.Stats
	for _, m := range rep.Messages {
		st.Add(m)
	}

	pdf.SetFont("Helvetica", "", 11)
	items := []struct {
		label string
		value string
	}{
		{label: "Capture", value: emptyFallback(rep.Source, "-")},
		{label: "Bit rate", value: fmt.Sprintf("%d bit/s", rep.Settings.BitRate)},
		{label: "Sample rate", value: fmt.Sprintf("%d Hz", rep.Settings.SampleRate)},
		{label: "Polarity", value: polarity(rep.Settings.Inverted)},
		{label: "Frames", value: strconv.FormatUint(st.Frames, 10)},
		{label: "Valid", value: strconv.FormatUint(st.Valid, 10)},
		{label: "Not acknowledged", value: strconv.FormatUint(st.Nacked, 10)},
		{label: "Stuff bits", value: strconv.FormatUint(st.StuffBits, 10)},
		{label: "Errors", value: strconv.Itoa(len(rep.Errors))},
	}
	for _, reason := range sortedKeys(st.Errors) {
		items = append(items, struct {
			label string
			value string
		}{label: "  " + reason, value: strconv.FormatUint(st.Errors[reason], 10)})
	}
	for _, item := range items {
		pdf.CellFormat(50, 6, item.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, item.value, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func addMessageSection(pdf *gofpdf.Fpdf, rep Report) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Frames")
	pdf.Ln(9)

	if len(rep.Messages) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, "No frames decoded.", "", "L", false)
		pdf.Ln(4)
		return
	}

	headers := []string{"Time [s]", "Identifier", "Type", "DLC", "Data", "CRC", "ACK", "Status"}
	widths := []float64{24, 24, 18, 12, 48, 16, 12, 26}
	renderHeader(pdf, headers, widths)

	pdf.SetFont("Courier", "", 8)
	for i, m := range rep.Messages {
		if i == maxReportRows {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.MultiCell(0, 5, fmt.Sprintf("%d more frames not shown.", len(rep.Messages)-i), "", "L", false)
			break
		}
		values := []string{
			seconds(m.Start, rep.Settings.SampleRate),
			identifier(m),
			messageType(m),
			strconv.Itoa(int(m.DLC)),
			data(m),
			fmt.Sprintf("%04X", m.CRC),
			ack(m),
			status(m),
		}
		for j, v := range values {
			pdf.CellFormat(widths[j], 5, v, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

func addErrorSection(pdf *gofpdf.Fpdf, rep Report) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Protocol Errors")
	pdf.Ln(9)

	if len(rep.Errors) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, "No errors recorded.", "", "L", false)
		return
	}

	headers := []string{"#", "Reason", "At [s]", "Recovered [s]"}
	widths := []float64{12, 40, 40, 40}
	renderHeader(pdf, headers, widths)

	pdf.SetFont("Helvetica", "", 9)
	for i, e := range rep.Errors {
		values := []string{
			strconv.Itoa(i + 1),
			e.Reason.String(),
			seconds(e.At, rep.Settings.SampleRate),
			seconds(e.End, rep.Settings.SampleRate),
		}
		for j, v := range values {
			pdf.CellFormat(widths[j], 5, v, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func renderHeader(pdf *gofpdf.Fpdf, headers []string, widths []float64) {
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 9)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
}

func seconds(sample uint64, rate uint32) string {
	return strconv.FormatFloat(float64(sample)/float64(rate), 'f', 6, 64)
}

func identifier(m can.Message) string {
	if m.Extended {
		return fmt.Sprintf("%08X", m.ID)
	}
	return fmt.Sprintf("%03X", m.ID)
}

func messageType(m can.Message) string {
	t := "Std"
	if m.Extended {
		t = "Ext"
	}
	if m.Remote {
		return t + " RTR"
	}
	return t
}

func data(m can.Message) string {
	if m.Remote || len(m.Data) == 0 {
		return "-"
	}
	parts := make([]string, len(m.Data))
	for i, b := range m.Data {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}

func ack(m can.Message) string {
	if !m.Valid {
		return "-"
	}
	if m.Acked {
		return "ACK"
	}
	return "NAK"
}

func status(m can.Message) string {
	if m.Valid {
		return "ok"
	}
	return m.Error.String()
}

func polarity(inverted bool) string {
	if inverted {
		return "inverted"
	}
	return "normal"
}

func emptyFallback(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
