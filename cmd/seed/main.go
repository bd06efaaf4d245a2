package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/levenlabs/go-lflag"
	"github.com/solarslot/solarslot/pkg/log"
	"github.com/solarslot/solarslot/pkg/storage"
	"github.com/solarslot/solarslot/pkg/types"
)

// demoChargers are spread around central Bangalore.
var demoChargers = []types.Charger{
	{ID: "mg-road", Name: "MG Road Solar Hub", Location: types.Location{Lat: 12.9756, Lng: 77.6066}, CostPerKWH: 12, PowerKW: 22, Status: types.ChargerStatusAvailable},
	{ID: "koramangala", Name: "Koramangala Fast Charge", Location: types.Location{Lat: 12.9352, Lng: 77.6245}, CostPerKWH: 15, PowerKW: 50, Status: types.ChargerStatusAvailable},
	{ID: "indiranagar", Name: "Indiranagar Green Point", Location: types.Location{Lat: 12.9784, Lng: 77.6408}, CostPerKWH: 10, PowerKW: 7.4, Status: types.ChargerStatusBusy},
	{ID: "whitefield", Name: "Whitefield Tech Park", Location: types.Location{Lat: 12.9698, Lng: 77.7500}, CostPerKWH: 9, PowerKW: 11, Status: types.ChargerStatusAvailable},
	{ID: "jayanagar", Name: "Jayanagar Community Charger", Location: types.Location{Lat: 12.9250, Lng: 77.5938}, CostPerKWH: 8, PowerKW: 7.4, Status: types.ChargerStatusMaintenance},
}

func main() {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")
	}
	s := storage.Configured()
	lflag.Configure()

	ctx := context.Background()
	if !storage.Persistent(s) {
		log.Ctx(ctx).ErrorContext(ctx, "refusing to seed a store that is discarded on exit, use --storage-provider=firestore")
		os.Exit(1)
	}
	defer s.Close()

	log.Ctx(ctx).InfoContext(ctx, "seeding demo chargers", slog.Int("count", len(demoChargers)))

	var added int
	for _, c := range demoChargers {
		if _, err := s.AddCharger(ctx, c); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to add charger", slog.String("chargerID", c.ID), slog.Any("error", err))
			continue
		}
		added++
	}

	log.Ctx(ctx).InfoContext(ctx, "seeding complete", slog.Int("added", added))
}
