package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/nurul-suhasril/idea-analyzer/internal/transcribe"
)

// tableRowCap bounds how many data rows a tabular file renders
const tableRowCap = 100

// FileExtractor dispatches uploaded files to a format-specific extraction
// path based purely on the filename extension
type FileExtractor struct {
	baseDir     string
	transcriber transcribe.Transcriber
	ffmpeg      string
	logger      *slog.Logger
}

// NewFileExtractor creates a new file extractor. Relative references are
// resolved against baseDir, the upload directory.
func NewFileExtractor(baseDir string, transcriber transcribe.Transcriber, logger *slog.Logger) *FileExtractor {
	return &FileExtractor{
		baseDir:     baseDir,
		transcriber: transcriber,
		ffmpeg:      "ffmpeg",
		logger:      logger,
	}
}

// Extract implements Extractor
func (e *FileExtractor) Extract(ctx context.Context, ref string) (*Result, error) {
	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.baseDir, ref)
	}

	name := uploadBaseName(ref)
	ext := strings.ToLower(filepath.Ext(name))

	e.logger.Info("Extracting file",
		slog.String("file", name),
		slog.String("extension", ext),
	)

	switch ext {
	case ".txt", ".md", ".markdown":
		return e.extractText(path, name)
	case ".pdf":
		return e.extractPDF(path, name)
	case ".docx", ".doc":
		return e.extractDocx(path, name)
	case ".mp3", ".wav", ".m4a", ".flac", ".ogg":
		return e.extractAudio(ctx, path, name)
	case ".mp4", ".webm", ".mkv", ".avi", ".mov":
		return e.extractVideo(ctx, path, name)
	case ".json":
		return e.extractJSON(path, name)
	case ".csv":
		return e.extractTable(path, name, ',')
	case ".tsv":
		return e.extractTable(path, name, '\t')
	case ".xlsx":
		return e.extractWorkbook(path, name)
	default:
		// Best-effort plain text read for anything unrecognized
		result, err := e.extractText(path, name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
		}
		return result, nil
	}
}

func (e *FileExtractor) extractText(path, name string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	content := string(data)

	return &Result{
		Title:   name,
		Content: content,
		Metadata: map[string]any{
			"file_type":  "text",
			"file_size":  len(data),
			"word_count": len(strings.Fields(content)),
		},
	}, nil
}

// extractPDF concatenates page text with page-break markers
func (e *FileExtractor) extractPDF(path, name string) (*Result, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var parts []string
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn("Failed to read PDF page",
				slog.String("file", name),
				slog.Int("page", pageNum),
				slog.Any("error", err),
			)
			continue
		}

		if strings.TrimSpace(text) != "" {
			parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s", pageNum, text))
		}
	}

	return &Result{
		Title:   name,
		Content: strings.Join(parts, "\n\n"),
		Metadata: map[string]any{
			"file_type": "pdf",
			"pages":     reader.NumPage(),
			"file_size": fileSize(path),
		},
	}, nil
}

// extractDocx pulls paragraph text out of the WordprocessingML body; a .docx
// is a zip archive with the document at word/document.xml
func (e *FileExtractor) extractDocx(path, name string) (*Result, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer archive.Close()

	var docFile *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("document has no word/document.xml")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open document body: %w", err)
	}
	defer rc.Close()

	paragraphs, err := docxParagraphs(rc)
	if err != nil {
		return nil, err
	}

	return &Result{
		Title:   name,
		Content: strings.Join(paragraphs, "\n\n"),
		Metadata: map[string]any{
			"file_type":  "docx",
			"paragraphs": len(paragraphs),
			"file_size":  fileSize(path),
		},
	}, nil
}

// docxParagraphs streams the XML, joining <w:t> runs per <w:p> paragraph and
// dropping empty paragraphs
func docxParagraphs(r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)

	var paragraphs []string
	var current strings.Builder
	inText := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse document XML: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if text := strings.TrimSpace(current.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}

	return paragraphs, nil
}

func (e *FileExtractor) extractAudio(ctx context.Context, path, name string) (*Result, error) {
	result, err := e.transcriber.Transcribe(ctx, path)
	if err != nil {
		return nil, err
	}

	return &Result{
		Title:   name,
		Content: result.Text,
		Metadata: map[string]any{
			"file_type": "audio",
			"file_size": fileSize(path),
			"language":  result.Language,
		},
	}, nil
}

// extractVideo pulls the audio track into a temporary file, transcribes it,
// and removes the temporary file on every path
func (e *FileExtractor) extractVideo(ctx context.Context, path, name string) (*Result, error) {
	tmp, err := os.CreateTemp("", "videoaudio-*.mp3")
	if err != nil {
		return nil, fmt.Errorf("failed to create audio temp file: %w", err)
	}
	audioPath := tmp.Name()
	tmp.Close()
	defer os.Remove(audioPath)

	cmd := exec.CommandContext(ctx, e.ffmpeg,
		"-i", path,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "4",
		"-y", audioPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w: %s", err, firstLine(stderr.String()))
	}

	result, err := e.extractAudio(ctx, audioPath, name)
	if err != nil {
		return nil, err
	}

	result.Metadata["file_type"] = "video"
	result.Metadata["file_size"] = fileSize(path)
	return result, nil
}

// extractJSON re-serializes the document canonically with stable indentation
func (e *FileExtractor) extractJSON(path, name string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	pretty, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to re-serialize JSON: %w", err)
	}

	return &Result{
		Title:   name,
		Content: string(pretty),
		Metadata: map[string]any{
			"file_type": "json",
			"file_size": len(data),
		},
	}, nil
}

func (e *FileExtractor) extractTable(path, name string, delim rune) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = delim
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse table: %w", err)
	}

	columns := 0
	if len(rows) > 0 {
		columns = len(rows[0])
	}

	return &Result{
		Title:   name,
		Content: renderTable(rows),
		Metadata: map[string]any{
			"file_type": "csv",
			"rows":      len(rows),
			"columns":   columns,
			"file_size": fileSize(path),
		},
	}, nil
}

func (e *FileExtractor) extractWorkbook(path, name string) (*Result, error) {
	workbook, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer workbook.Close()

	sheet := workbook.GetSheetName(0)
	rows, err := workbook.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	return &Result{
		Title:   name,
		Content: renderTable(rows),
		Metadata: map[string]any{
			"file_type": "xlsx",
			"sheet":     sheet,
			"rows":      len(rows),
			"file_size": fileSize(path),
		},
	}, nil
}

// renderTable renders a header row, a separator row, and up to tableRowCap
// data rows, with an explicit trailer naming how many rows were cut
func renderTable(rows [][]string) string {
	if len(rows) == 0 {
		return "(empty file)"
	}

	var parts []string
	parts = append(parts, "| "+strings.Join(rows[0], " | ")+" |")

	separators := make([]string, len(rows[0]))
	for i := range separators {
		separators[i] = "---"
	}
	parts = append(parts, "| "+strings.Join(separators, " | ")+" |")

	data := rows[1:]
	rendered := data
	if len(rendered) > tableRowCap {
		rendered = rendered[:tableRowCap]
	}

	for _, row := range rendered {
		parts = append(parts, "| "+strings.Join(row, " | ")+" |")
	}

	if len(data) > tableRowCap {
		parts = append(parts, fmt.Sprintf("\n... and %d more rows", len(data)-tableRowCap))
	}

	return strings.Join(parts, "\n")
}

// uploadBaseName strips the job-id prefix uploads are stored under, so titles
// show the original filename
func uploadBaseName(ref string) string {
	base := filepath.Base(ref)
	if i := strings.IndexByte(base, '_'); i == 8 && isLowerAlnum(base[:i]) {
		return base[i+1:]
	}
	return base
}

func isLowerAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return len(s) > 0
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
