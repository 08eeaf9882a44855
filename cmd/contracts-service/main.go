package main

import (
	"fmt"
	"os"

	"github.com/deeplancer/contracts-service/internal/auth"
	"github.com/deeplancer/contracts-service/internal/config"
	"github.com/deeplancer/contracts-service/internal/db"
	"github.com/deeplancer/contracts-service/internal/excel"
	httphandler "github.com/deeplancer/contracts-service/internal/http"
	"github.com/deeplancer/contracts-service/internal/http/middleware"
	"github.com/deeplancer/contracts-service/internal/logger"
	"github.com/deeplancer/contracts-service/internal/pdf"
	"github.com/deeplancer/contracts-service/internal/repository"
	"github.com/deeplancer/contracts-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	contractRepo := repository.NewContractRepository(database)
	worklogRepo := repository.NewWorkLogRepository(database)
	invoiceRepo := repository.NewInvoiceRepository(database)

	approvalService := service.NewApprovalService(contractRepo, worklogRepo, cfg)
	escrowService := service.NewEscrowService(contractRepo, invoiceRepo)
	sprintService := service.NewSprintService(contractRepo, worklogRepo)
	viewService := service.NewViewService(
		contractRepo,
		worklogRepo,
		invoiceRepo,
		pdf.NewGenerator(),
		excel.NewGenerator(),
		cfg,
	)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(approvalService, escrowService, sprintService, viewService, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment, cfg.HTTP.AllowedOrigins)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting contracts service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
