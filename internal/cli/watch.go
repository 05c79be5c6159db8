package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fsnotify/fsnotify"
	"github.com/pterm/pterm"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-live-translator/internal/dom"
)

// watch 观察输入文件的变化，把新内容拼进活文档。文件写入产生的
// body 替换会经由文档的变更通知走完整的观察器→批处理器管道，
// 新文本在一个防抖窗口加一个批次周期内出现译文。
func watch(doc *dom.Document, inputPath string, log *zap.Logger) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(inputPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", inputPath, err)
	}

	pterm.Info.Println("观察 " + inputPath + " 的变化（Ctrl-C 退出）")

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := applyFile(doc, inputPath); err != nil {
					log.Warn("failed to apply file change", zap.Error(err))
					continue
				}
				log.Info("input file changed, body updated", zap.String("file", inputPath))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("watcher error", zap.Error(err))
			}
		}
	}()

	return func() { watcher.Close() }, nil
}

// applyFile 读取文件并用其 body 内容替换活文档的 body
func applyFile(doc *dom.Document, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	gq, err := goquery.NewDocumentFromReader(strings.NewReader(string(content)))
	if err != nil {
		return err
	}
	bodyHTML, err := gq.Find("body").Html()
	if err != nil {
		return err
	}
	if strings.TrimSpace(bodyHTML) == "" {
		bodyHTML = string(content)
	}

	return doc.SetBodyHTML(bodyHTML)
}
