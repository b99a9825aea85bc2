// Package advisor produces agronomic and logistics advice. Remote advisors
// may be slow or unreachable, so every call goes through WithFallback with a
// locally computed answer ready.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"agri-sentinel/internal/agri"
)

// ErrNoAdvice is returned by an advisor that has nothing to say.
var ErrNoAdvice = errors.New("no advice available")

// DefaultTimeout bounds a remote call when the configuration sets none.
const DefaultTimeout = 10 * time.Second

// SystemInstruction frames every remote request.
const SystemInstruction = `Tu es l'Agronome Majeur du Gabon, conseiller en souveraineté alimentaire.
Tu connais les ferralsols acides de l'Estuaire (pH 4.5-5.5), les deux saisons des pluies
(février-mai, octobre-décembre), la mosaïque du manioc et la cercosporiose de la banane.
Pour la logistique, tu connais les axes Libreville-Oyem-Bitam et l'exigence de chaîne du froid.
Réponds brièvement, en français, avec des actions concrètes.`

// WithFallback asks a for advice, giving up after timeout. On any failure it
// returns fallback together with the cause, so callers always have text to
// show and can still log why the remote answer was not used.
func WithFallback(ctx context.Context, a agri.Advisor, timeout time.Duration, prompt, fallback string) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := a.Advise(ctx, prompt)
		done <- result{text, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return fallback, fmt.Errorf("%s advisor: %w", a.Name(), r.err)
		}
		if strings.TrimSpace(r.text) == "" {
			return fallback, fmt.Errorf("%s advisor: %w", a.Name(), ErrNoAdvice)
		}
		return r.text, nil
	case <-ctx.Done():
		return fallback, fmt.Errorf("%s advisor: %w", a.Name(), ctx.Err())
	}
}

// FleetPrompt asks for refuelling stops and maintenance alerts for the fleet.
func FleetPrompt(vehicles []agri.FleetVehicle) (string, error) {
	data, err := json.Marshal(vehicles)
	if err != nil {
		return "", fmt.Errorf("encoding fleet: %w", err)
	}
	return "CONTEXTE GABON LOGISTIQUE: analyse cette flotte IoT : " + string(data) + "\n" +
		"Prends en compte le niveau de carburant, la santé moteur et la température des soutes frigo. " +
		"Suggère des points de ravitaillement stratégiques et des alertes de maintenance.", nil
}

// FleetFallback summarises the fleet's alerts without any remote call.
func FleetFallback(vehicles []agri.FleetVehicle) string {
	if len(vehicles) == 0 {
		return "Aucun véhicule enrôlé."
	}

	var lines []string
	for _, v := range vehicles {
		for _, alert := range v.Alerts() {
			switch alert {
			case agri.AlertLowFuel:
				lines = append(lines, fmt.Sprintf("%s (%s) : ravitaillement requis, carburant à %.0f%%.", v.ID, v.DriverName, v.FuelLevel))
			case agri.AlertEngine:
				lines = append(lines, fmt.Sprintf("%s (%s) : contrôle moteur, santé à %.0f%%.", v.ID, v.DriverName, v.EngineHealth))
			case agri.AlertColdChain:
				lines = append(lines, fmt.Sprintf("%s (%s) : chaîne du froid rompue, soute à %.1f°C.", v.ID, v.DriverName, *v.CargoTemp))
			}
		}
	}
	if len(lines) == 0 {
		return fmt.Sprintf("Optimisation locale : %d véhicule(s), aucune alerte. État matériel optimal.", len(vehicles))
	}
	return "Optimisation locale :\n" + strings.Join(lines, "\n")
}
