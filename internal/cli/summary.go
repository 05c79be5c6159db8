package cli

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/nerdneilsfield/go-live-translator/internal/config"
	"github.com/nerdneilsfield/go-live-translator/internal/engine"
)

// summaryPreview 摘要表里原文/译文的最大显示长度
const summaryPreview = 40

// printSummary 打印替换记录摘要表
func printSummary(registry *engine.Registry, cfg *config.Config) {
	records := registry.Records()
	if len(records) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "原文", "译文"})
	for _, rec := range records {
		t.AppendRow(table.Row{
			rec.Seq,
			clip(rec.OriginalText, summaryPreview),
			clip(rec.TranslatedText, summaryPreview),
		})
	}
	t.AppendFooter(table.Row{"", "共计", len(records)})
	t.Render()
}

// clip 截断文本用于表格显示
func clip(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
