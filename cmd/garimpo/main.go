// Command garimpo runs one collection end to end from the terminal.
//
// Usage:
//
//	garimpo -query "mercado de telemedicina no Brasil" -segment telemedicina
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/zaircost/garimpo"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "erro:", err)
		os.Exit(1)
	}
}

func run() error {
	query := flag.String("query", "", "consulta de busca (obrigatório)")
	segment := flag.String("segment", "", "segmento de mercado")
	product := flag.String("product", "", "produto ou serviço")
	audience := flag.String("audience", "", "público-alvo")
	sessionID := flag.String("session", "", "id da sessão (gerado quando vazio)")
	configPath := flag.String("config", "", "arquivo de configuração YAML opcional")
	debug := flag.Bool("debug", false, "logging detalhado")
	flag.Parse()

	if strings.TrimSpace(*query) == "" {
		flag.Usage()
		return fmt.Errorf("-query é obrigatório")
	}

	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()

	cfg, err := garimpo.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	orchestrator, err := garimpo.New(cfg, logger)
	if err != nil {
		return err
	}

	id := *sessionID
	if id == "" {
		id = "session_" + strings.ReplaceAll(uuid.New().String()[:13], "-", "")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, err := orchestrator.Collect(ctx, *query, garimpo.Context{
		Segment:  *segment,
		Product:  *product,
		Audience: *audience,
	}, id)
	if err != nil {
		return err
	}

	fmt.Printf("sessão %s concluída: %d fontes, %d screenshots em %.1fs\n",
		data.SessionID,
		data.Statistics.TotalSources,
		data.Statistics.ScreenshotCount,
		data.Statistics.CollectionTime)
	fmt.Println("relatório:", filepath.Join(cfg.SessionsRoot, data.SessionID, "relatorio_coleta.md"))
	return nil
}
