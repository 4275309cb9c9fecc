package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/OpenTollGate/tollgate-captive-portal-site/config"
	"github.com/OpenTollGate/tollgate-captive-portal-site/controller"
	"github.com/OpenTollGate/tollgate-captive-portal-site/dao"
	"github.com/OpenTollGate/tollgate-captive-portal-site/i18n"
	"github.com/OpenTollGate/tollgate-captive-portal-site/logic"
	"github.com/OpenTollGate/tollgate-captive-portal-site/pkg"
)

func main() {
	// Initialize config
	if len(os.Args) < 2 {
		log.Fatal("Usage: tollgate-portal <config.yaml> [simulate]")
	}
	configFile := os.Args[1]
	if err := config.LoadConfig(configFile); err != nil {
		log.Fatalf("Failed to load config from %s: %v", configFile, err)
	}

	level, err := log.ParseLevel(config.GlobalConfig.Log.Level)
	if err != nil {
		log.Warnf("invalid log level %q, defaulting to info", config.GlobalConfig.Log.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	// Optional development mode: run a gateway simulator in-process so the
	// portal can be exercised without a real TollGate.
	if len(os.Args) > 2 && os.Args[2] == "simulate" {
		sim := pkg.NewGatewaySim("milliseconds", "600000", [][]string{
			{"cashu", "210", "sat", "https://mint.example.com", "1"},
			{"cashu", "500", "sat", "https://othermint.example.com", "3"},
		})
		go func() {
			if err := sim.Router().Run(":2121"); err != nil {
				log.Fatalf("Failed to run gateway simulator: %v", err)
			}
		}()
		log.Info("gateway simulator listening on :2121")
	}

	// Initialize labels and clients
	resolve := i18n.English()
	gateway := pkg.NewGatewayClient(config.GlobalConfig.Gateway.Address, resolve)

	// Initialize DAOs
	sessionDAO := dao.NewSessionDAO(time.Duration(config.GlobalConfig.Portal.SessionTTLMinutes) * time.Minute)

	// Initialize Logics
	validator := logic.NewTokenValidator(resolve)
	allocator := logic.NewAllocator(resolve)
	sessions := logic.NewSessionLogic(
		gateway,
		sessionDAO,
		validator,
		allocator,
		resolve,
		time.Duration(config.GlobalConfig.Portal.PollIntervalSeconds)*time.Second,
		time.Duration(config.GlobalConfig.Portal.AutoCloseSeconds)*time.Second,
	)
	if addr := config.GlobalConfig.Gateway.MintProxyAddress; addr != "" {
		sessions.SetMintProxyAddress(addr)
	}
	sessions.SetCloseFunc(func(id uuid.UUID) {
		// Best-effort: the embedding page may refuse to close, but the
		// session itself is always released.
		sessions.CloseSession(id.String())
	})

	// Initialize Controllers and router
	sessionCtrl := controller.NewSessionController(sessions)
	r := controller.NewRouter(sessionCtrl)

	// Run server
	if err := r.Run(fmt.Sprintf(":%d", config.GlobalConfig.Server.Port)); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
