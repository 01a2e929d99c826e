// package formatter provides functions to export the do-not-play list to various formats (CSV, Markdown, JSON, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nodrake/ndh/internal/services"
	"github.com/nodrake/ndh/internal/shared"
)

// defaultBaseFilename is used when a caller does not name the output file.
const defaultBaseFilename = "dnp_export"

// ExportToCSV converts a DNPExport to CSV format with columns: ID, Name, Provider, Tags, Note, Added
func ExportToCSV(export *services.DNPExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Provider", "Tags", "Note", "Added"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, entry := range export.Entries {
		added := ""
		if !entry.CreatedAt.IsZero() {
			added = entry.CreatedAt.Format(time.RFC3339)
		}
		record := []string{
			entry.Artist.ID,
			entry.Artist.Name,
			entry.Artist.Provider,
			strings.Join(entry.Tags, ";"),
			entry.Note,
			added,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a DNPExport to Markdown format
func ExportToMarkdown(export *services.DNPExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Do Not Play List\n\n")

	if !export.ExportedAt.IsZero() {
		buf.WriteString(fmt.Sprintf("**Exported**: %s\n", export.ExportedAt.Format(time.RFC3339)))
	}
	buf.WriteString(fmt.Sprintf("**Artists**: %d\n\n", len(export.Entries)))

	buf.WriteString("## Artists\n\n")
	for i, entry := range export.Entries {
		tagsPart := ""
		if len(entry.Tags) > 0 {
			tagsPart = fmt.Sprintf(" [%s]", strings.Join(entry.Tags, ", "))
		}
		notePart := ""
		if entry.Note != "" {
			notePart = fmt.Sprintf(" - %s", entry.Note)
		}
		buf.WriteString(fmt.Sprintf("%d. %s%s%s\n", i+1, entry.Artist.Name, tagsPart, notePart))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a DNPExport to plain text format
func ExportToText(export *services.DNPExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("Do Not Play List\n")
	if !export.ExportedAt.IsZero() {
		buf.WriteString(fmt.Sprintf("Exported: %s\n", export.ExportedAt.Format(time.RFC3339)))
	}
	buf.WriteString(fmt.Sprintf("Artists: %d\n\n", len(export.Entries)))

	for i, entry := range export.Entries {
		buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, entry.Artist.Name))
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts a DNPExport to indented JSON, the portable form other tools re-import
func ExportToJSON(export *services.DNPExport) ([]byte, error) {
	return shared.MarshalJSON(export, true)
}

// ToMetadataJSON generates a JSON representation of export metadata (without entries)
func ToMetadataJSON(export *services.DNPExport) ([]byte, error) {
	meta := struct {
		Total      int       `json:"total"`
		ExportedAt time.Time `json:"exported_at"`
	}{
		Total:      export.Total,
		ExportedAt: export.ExportedAt,
	}
	return shared.MarshalJSON(meta, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	ArtistsFile  string
	MetadataFile string
}

// WriteCSVExport exports the blocklist to CSV format with an accompanying metadata JSON file.
//
// Defaults to "dnp_export" as the base filename & creates {base}_artists.csv and {base}_metadata.json
func WriteCSVExport(export *services.DNPExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = defaultBaseFilename
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	artistsFile := baseFilepath + "_artists.csv"
	if err := os.WriteFile(artistsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		ArtistsFile:  artistsFile,
		MetadataFile: metadataFile,
	}, nil
}

// WriteMarkdownExport exports the blocklist to Markdown format.
//
// Defaults to "dnp_export.md" as the filename.
func WriteMarkdownExport(export *services.DNPExport, filepath string) (string, error) {
	if filepath == "" {
		filepath = defaultBaseFilename + ".md"
	}

	mdData, err := ExportToMarkdown(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	if err := os.WriteFile(filepath, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return filepath, nil
}

// WriteTextExport exports the blocklist to plain text format.
//
// Defaults to "dnp_export.txt" as the filename.
func WriteTextExport(export *services.DNPExport, filepath string) (string, error) {
	if filepath == "" {
		filepath = defaultBaseFilename + ".txt"
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(filepath, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return filepath, nil
}

// WriteJSONExport exports the blocklist to JSON format.
//
// Defaults to "dnp_export.json" as the filename.
func WriteJSONExport(export *services.DNPExport, filepath string) (string, error) {
	if filepath == "" {
		filepath = defaultBaseFilename + ".json"
	}

	jsonData, err := ExportToJSON(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate JSON: %w", err)
	}

	if err := os.WriteFile(filepath, jsonData, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}

	return filepath, nil
}
