// Command ecotrack は家電の消費電力を記録・集計するAPIサーバーとワーカーを起動する。
//
// 使い方:
//
//	ecotrack [serve|worker|migrate|healthcheck]
package main

import (
	"log/slog"
	"os"

	"github.com/hitoshi/ecotrack/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		slog.Error("application exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
