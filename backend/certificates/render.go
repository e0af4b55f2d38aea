package certificates

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"
)

// Data поля, которые печатаются на сертификате
type Data struct {
	StudentName   string
	CourseTitle   string
	QuizTitle     string
	IssuedAt      time.Time
	CertificateID string
}

type Document struct {
	Content   []byte
	Extension string
}

type Renderer interface {
	Name() string
	Render(data Data) (*Document, error)
}

// Chain пробует рендереры по порядку, побеждает первый успешный
type Chain []Renderer

func (c Chain) Name() string {
	names := make([]string, 0, len(c))
	for _, r := range c {
		names = append(names, r.Name())
	}
	return strings.Join(names, ",")
}

func (c Chain) Render(data Data) (*Document, error) {
	if len(c) == 0 {
		return nil, errors.New("no certificate renderers configured")
	}

	failures := make([]string, 0, len(c))
	for _, r := range c {
		doc, err := r.Render(data)
		if err == nil && doc != nil && len(doc.Content) > 0 {
			return doc, nil
		}
		if err == nil {
			err = errors.New("empty document")
		}
		failures = append(failures, r.Name()+": "+err.Error())
	}
	return nil, errors.Errorf("all certificate renderers failed: %s", strings.Join(failures, "; "))
}

// DefaultChain PDF, а при ошибке простой текст
func DefaultChain() Chain {
	return Chain{PDFRenderer{}, TextRenderer{}}
}

type PDFRenderer struct{}

func (PDFRenderer) Name() string { return "pdf" }

func (PDFRenderer) Render(data Data) (*Document, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Certificate of Completion", true)
	pdf.SetAuthor("Potato Learn", true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	width, height := pdf.GetPageSize()

	// Рамка
	pdf.SetDrawColor(120, 85, 40)
	pdf.SetLineWidth(1.5)
	pdf.Rect(10, 10, width-20, height-20, "D")
	pdf.SetLineWidth(0.4)
	pdf.Rect(14, 14, width-28, height-28, "D")

	pdf.SetY(35)
	pdf.SetFont("Helvetica", "B", 34)
	pdf.SetTextColor(90, 60, 20)
	pdf.CellFormat(0, 16, tr("Certificate of Completion"), "", 1, "C", false, 0, "")

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 16)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(0, 10, tr("This certifies that"), "", 1, "C", false, 0, "")

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 28)
	pdf.SetTextColor(20, 20, 20)
	pdf.CellFormat(0, 14, tr(data.StudentName), "", 1, "C", false, 0, "")

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "", 16)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(0, 10, tr("has successfully completed the course"), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetTextColor(20, 20, 20)
	pdf.CellFormat(0, 12, tr(data.CourseTitle), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "I", 13)
	pdf.SetTextColor(80, 80, 80)
	pdf.CellFormat(0, 8, tr("by passing "+data.QuizTitle), "", 1, "C", false, 0, "")

	pdf.SetY(height - 45)
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 7, tr("Issued on "+data.IssuedAt.Format("January 2, 2006")), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 7, tr("Certificate ID: "+data.CertificateID), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "rendering pdf")
	}
	return &Document{Content: buf.Bytes(), Extension: ".pdf"}, nil
}

type TextRenderer struct{}

func (TextRenderer) Name() string { return "text" }

func (TextRenderer) Render(data Data) (*Document, error) {
	var b strings.Builder
	fmt.Fprintln(&b, "CERTIFICATE OF COMPLETION")
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Student: %s\n", data.StudentName)
	fmt.Fprintf(&b, "Course: %s\n", data.CourseTitle)
	fmt.Fprintf(&b, "Quiz: %s\n", data.QuizTitle)
	fmt.Fprintf(&b, "Issued: %s\n", data.IssuedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "Certificate ID: %s\n", data.CertificateID)
	return &Document{Content: []byte(b.String()), Extension: ".txt"}, nil
}
