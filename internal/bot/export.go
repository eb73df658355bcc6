package bot

import (
	"context"
	"fmt"
	"os"

	"example.com/runtracker/internal/domain"
	"example.com/runtracker/internal/export"
	"example.com/runtracker/internal/observability"
)

// Attachment name prefixes for menu and command exports.
const (
	exportPrefixMenu    = "running_tracker"
	exportPrefixCommand = "running_data"
)

func (d *Dispatcher) exportRuns(ctx context.Context, msg Message, out Outbound, src source) error {
	emptyText, failedText, prefix := textNoExportMenu, textExportFailedMenu, exportPrefixMenu
	if src == fromCommand {
		emptyText, failedText, prefix = textNoExportCommand, textExportFailedCommand, exportPrefixCommand
	}

	runs, err := d.service.Runs(ctx)
	if err != nil {
		observability.RecordExport("failed")
		d.logger.Printf("export for conversation %s: %v", msg.ConversationID, err)
		return out.SendText(ctx, msg.ConversationID, Reply{Text: failedText, Markdown: true})
	}
	if len(runs) == 0 {
		observability.RecordExport("empty")
		return out.SendText(ctx, msg.ConversationID, Reply{Text: emptyText, Markdown: true})
	}

	filename := export.Filename(prefix, d.service.Now())
	if err := d.deliverExport(ctx, msg.ConversationID, filename, runs, out); err != nil {
		observability.RecordExport("failed")
		d.logger.Printf("export for conversation %s: %v", msg.ConversationID, err)
		return out.SendText(ctx, msg.ConversationID, Reply{Text: failedText, Markdown: true})
	}
	observability.RecordExport("delivered")
	return nil
}

// deliverExport stages the CSV in the staging directory and hands it to the
// transport. The staged file is removed on every path.
func (d *Dispatcher) deliverExport(ctx context.Context, conversationID, filename string, runs []domain.Run, out Outbound) error {
	file, err := os.CreateTemp(d.stagingDir, "runtracker-export-*.csv")
	if err != nil {
		return fmt.Errorf("stage export: %w", err)
	}
	path := file.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			d.logger.Printf("remove staged export %s: %v", path, err)
		}
	}()

	if err := export.WriteCSV(file, runs); err != nil {
		_ = file.Close()
		return fmt.Errorf("write export: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close export: %w", err)
	}

	doc := Document{Filename: filename, ContentType: export.ContentType, Path: path}
	if err := out.SendDocument(ctx, conversationID, doc); err != nil {
		return fmt.Errorf("deliver export: %w", err)
	}
	return nil
}
