package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nodrake/ndh/internal/formatter"
	"github.com/nodrake/ndh/internal/services"
	"github.com/nodrake/ndh/internal/shared"
	"github.com/nodrake/ndh/internal/tasks"
	"github.com/urfave/cli/v3"
)

// DNPList shows the personal blocklist, optionally filtered by tag.
func (r *Runner) DNPList(ctx context.Context, cmd *cli.Command) error {
	tag := cmd.String("tag")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	entries, err := r.dnp.List(ctx)
	if err != nil {
		return err
	}

	if tag != "" {
		filtered := entries[:0]
		for _, entry := range entries {
			for _, entryTag := range entry.Tags {
				if entryTag == tag {
					filtered = append(filtered, entry)
					break
				}
			}
		}
		entries = filtered
	}

	if useJSON {
		return r.writeJSON(entries, pretty)
	}

	if len(entries) == 0 {
		if tag != "" {
			return r.writePlain("No entries tagged %q.\n", tag)
		}
		return r.writePlain("Your do-not-play list is empty. Add artists with 'ndh dnp add'.\n")
	}

	r.writePlain("Do-not-play list (%d artists):\n\n", len(entries))
	for i, entry := range entries {
		r.writePlain("%d. %s", i+1, entry.Artist.Name)
		if len(entry.Tags) > 0 {
			r.writePlain(" [%s]", strings.Join(entry.Tags, ", "))
		}
		r.writePlain("\n")
		if entry.Note != "" {
			r.writePlain("   Note: %s\n", entry.Note)
		}
	}
	return nil
}

// DNPAdd puts an artist on the blocklist. The argument is a search query
// unless --id marks it as a backend artist ID.
func (r *Runner) DNPAdd(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("artist")
	if query == "" {
		return fmt.Errorf("%w: artist argument is required", shared.ErrMissingArgument)
	}
	tags := splitList(cmd.String("tags"))
	note := cmd.String("note")

	artistID := query
	if !cmd.Bool("id") {
		matches, err := r.dnp.SearchArtists(ctx, query, 5)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return fmt.Errorf("%w: no artist matches %q", shared.ErrArtistNotFound, query)
		}
		artistID = matches[0].ID
		if len(matches) > 1 {
			r.writePlain("Multiple matches, using %s", matches[0].Name)
			if matches[0].Provider != "" {
				r.writePlain(" (%s)", matches[0].Provider)
			}
			r.writePlain("\n")
		}
	}

	r.logger.Info("adding artist to list", "artist_id", artistID)

	entry, err := r.dnp.Add(ctx, artistID, tags, note)
	if err != nil {
		return err
	}

	r.writePlain("✓ %s added to your do-not-play list\n", entry.Artist.Name)
	if len(entry.Tags) > 0 {
		r.writePlain("  Tags: %s\n", strings.Join(entry.Tags, ", "))
	}
	if entry.Note != "" {
		r.writePlain("  Note: %s\n", entry.Note)
	}
	return nil
}

// DNPRemove takes an artist off the blocklist.
func (r *Runner) DNPRemove(ctx context.Context, cmd *cli.Command) error {
	artistID := cmd.StringArg("artist-id")
	if artistID == "" {
		return fmt.Errorf("%w: artist-id argument is required", shared.ErrMissingArgument)
	}

	r.logger.Info("removing artist from list", "artist_id", artistID)

	if err := r.dnp.Remove(ctx, artistID); err != nil {
		return err
	}

	return r.writePlain("✓ Removed from your do-not-play list\n")
}

// DNPSearch looks up artists across the backend's provider catalogs.
func (r *Runner) DNPSearch(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: query argument is required", shared.ErrMissingArgument)
	}
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")

	artists, err := r.dnp.SearchArtists(ctx, query, limit)
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(artists, true)
	}

	if len(artists) == 0 {
		return r.writePlain("No artists match %q.\n", query)
	}

	r.writePlain("Found %d artists:\n\n", len(artists))
	for i, artist := range artists {
		r.writePlain("%d. %s\n", i+1, artist.Name)
		r.writePlain("   ID: %s\n", artist.ID)
		if artist.Provider != "" {
			r.writePlain("   Provider: %s\n", artist.Provider)
		}
	}
	return nil
}

// DNPImport bulk-imports artists from a file. JSON exports, CSV exports,
// and one-name-per-line text files are all accepted.
func (r *Runner) DNPImport(ctx context.Context, cmd *cli.Command) error {
	filePath := cmd.StringArg("file")
	if filePath == "" {
		return fmt.Errorf("%w: file argument is required", shared.ErrMissingArgument)
	}

	entries, err := readImportFile(filePath)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: no artists found in %s", shared.ErrInvalidInput, filePath)
	}

	r.logger.Info("starting bulk import", "file", filePath, "entries", len(entries))
	r.writePlain("Importing %d artists from %s...\n\n", len(entries), filePath)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			if update.Phase != tasks.Importing {
				continue
			}
			if update.Step == 0 {
				r.writePlain("📥 %s\n", update.Message)
			} else {
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	result, err := r.engine.BulkImport(ctx, entries, tasks.BulkImportOpts{
		NumWorkers: cmd.Int("workers"),
		Tags:       splitList(cmd.String("tags")),
		Note:       cmd.String("note"),
	}, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Import Complete")
	r.writePlain("Added: %d\n", result.Added)
	r.writePlain("Skipped (already listed): %d\n", result.Skipped)
	r.writePlain("Failed: %d\n", result.Failed)

	if result.Failed > 0 {
		r.writePlain("\nFailed entries:\n")
		for _, outcome := range result.Outcomes {
			if outcome.Error != nil {
				r.writePlain("  - %s: %v\n", outcome.Entry.Label(), outcome.Error)
			}
		}
	}
	return nil
}

// DNPExport writes the blocklist to a file in the requested format, or
// prints it with --json.
func (r *Runner) DNPExport(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	outputPath := cmd.String("output")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	r.logger.Info("exporting do-not-play list", "format", format)

	export, err := r.dnp.Export(ctx)
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(export, pretty)
	}

	switch format {
	case "csv":
		result, err := formatter.WriteCSVExport(export, outputPath)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d artists\n", export.Total)
		r.writePlain("  Artists: %s\n", result.ArtistsFile)
		r.writePlain("  Metadata: %s\n", result.MetadataFile)
	case "markdown", "md":
		path, err := formatter.WriteMarkdownExport(export, outputPath)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d artists to %s\n", export.Total, path)
	case "text", "txt":
		path, err := formatter.WriteTextExport(export, outputPath)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d artists to %s\n", export.Total, path)
	case "json":
		path, err := formatter.WriteJSONExport(export, outputPath)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d artists to %s\n", export.Total, path)
	default:
		return fmt.Errorf("%w: unknown format %q (csv, markdown, text, json)", shared.ErrInvalidFlag, format)
	}
	return nil
}

// readImportFile parses an import file into entries. JSON files holding a
// previous export (or a bare array of names) and CSV exports round-trip;
// anything else is read as one artist name per line.
func readImportFile(path string) ([]tasks.ImportEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return parseJSONImport(data)
	case ".csv":
		return parseCSVImport(data)
	default:
		return parseLineImport(data), nil
	}
}

func parseJSONImport(data []byte) ([]tasks.ImportEntry, error) {
	var export services.DNPExport
	if err := json.Unmarshal(data, &export); err == nil && len(export.Entries) > 0 {
		entries := make([]tasks.ImportEntry, 0, len(export.Entries))
		for _, entry := range export.Entries {
			entries = append(entries, tasks.ImportEntry{
				ArtistID: entry.Artist.ID,
				Query:    entry.Artist.Name,
				Tags:     entry.Tags,
				Note:     entry.Note,
			})
		}
		return entries, nil
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("%w: expected an export document or an array of names", shared.ErrInvalidInput)
	}
	entries := make([]tasks.ImportEntry, 0, len(names))
	for _, name := range names {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			entries = append(entries, tasks.ImportEntry{Query: trimmed})
		}
	}
	return entries, nil
}

func parseCSVImport(data []byte) ([]tasks.ImportEntry, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: malformed CSV: %v", shared.ErrInvalidInput, err)
	}

	var entries []tasks.ImportEntry
	for i, record := range records {
		if len(record) == 0 {
			continue
		}
		first := strings.TrimSpace(record[0])
		if i == 0 && (strings.EqualFold(first, "id") || strings.EqualFold(first, "name")) {
			continue // header row from a previous export
		}

		entry := tasks.ImportEntry{}
		if len(record) >= 6 {
			// Full export row: id, name, provider, tags, note, added.
			entry.ArtistID = first
			entry.Query = strings.TrimSpace(record[1])
			if record[3] != "" {
				entry.Tags = strings.Split(record[3], ";")
			}
			entry.Note = record[4]
		} else {
			entry.Query = first
		}
		if entry.ArtistID == "" && entry.Query == "" {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseLineImport(data []byte) []tasks.ImportEntry {
	var entries []tasks.ImportEntry
	for _, line := range strings.Split(string(data), "\n") {
		name := strings.TrimSpace(line)
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}
		entries = append(entries, tasks.ImportEntry{Query: name})
	}
	return entries
}
