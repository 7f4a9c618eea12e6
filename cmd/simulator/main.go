package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// The simulator drives a running API the way a neighbourhood of users
// would: periodic sighting reports, the occasional status transition,
// and guardian assignments. Useful for demos and soak testing the map
// session fan-out.

type sighting struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type reporter struct {
	base   string
	client *http.Client
	ids    []string
}

var (
	names  = []string{"Michi", "Luna", "Rocky", "Pelusa", "Toby", "Nube", "Canela", "Simba"}
	types  = []string{"cat", "cat", "dog", "other"} // cats dominate street sightings
	people = []string{"ane", "jon", "maite", "iker", "amaia"}
)

func main() {
	base := "http://localhost:8080"
	if len(os.Args) > 1 {
		base = os.Args[1]
	}
	interval := 5 * time.Second
	if v := os.Getenv("SIM_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			interval = d
		}
	}

	centerLat, centerLng := 43.263, -2.935

	r := &reporter{
		base:   base,
		client: &http.Client{Timeout: 10 * time.Second},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("Patitas simulator — reporting to %s every %s", base, interval)

	r.tick(ctx, centerLat, centerLng)
	for {
		select {
		case <-ticker.C:
			r.tick(ctx, centerLat, centerLng)
		case sig := <-quit:
			log.Printf("received signal %v, stopping simulator", sig)
			return
		}
	}
}

// tick performs one round of simulated activity.
func (r *reporter) tick(ctx context.Context, lat, lng float64) {
	switch n := rand.Intn(10); {
	case n < 6 || len(r.ids) == 0:
		r.report(ctx, lat, lng)
	case n < 8:
		r.transition(ctx)
	default:
		r.assignGuardian(ctx)
	}
}

func (r *reporter) report(ctx context.Context, lat, lng float64) {
	body := map[string]any{
		"type":        types[rand.Intn(len(types))],
		"name":        names[rand.Intn(len(names))],
		"lat":         lat + (rand.Float64()-0.5)*0.05,
		"lng":         lng + (rand.Float64()-0.5)*0.05,
		"reported_by": people[rand.Intn(len(people))],
	}
	var created sighting
	if err := r.post(ctx, "POST", "/v1/sightings", body, &created); err != nil {
		log.Printf("report: %v", err)
		return
	}
	r.ids = append(r.ids, created.ID)
	log.Printf("reported %s (%d known)", created.ID, len(r.ids))
}

func (r *reporter) transition(ctx context.Context) {
	id := r.ids[rand.Intn(len(r.ids))]
	statuses := []string{"needs_help", "being_helped", "adopted"}
	body := map[string]string{"status": statuses[rand.Intn(len(statuses))]}
	if err := r.post(ctx, "PATCH", "/v1/sightings/"+id+"/status", body, nil); err != nil {
		log.Printf("transition %s: %v", id, err)
		return
	}
	log.Printf("moved %s to %s", id, body["status"])
}

func (r *reporter) assignGuardian(ctx context.Context) {
	id := r.ids[rand.Intn(len(r.ids))]
	name := people[rand.Intn(len(people))]
	body := map[string]string{"name": name, "contact": name + "@example.org"}
	// 409 when the guardian is at capacity; that is expected traffic too.
	if err := r.post(ctx, "PUT", "/v1/sightings/"+id+"/guardian", body, nil); err != nil {
		log.Printf("guardian %s: %v", id, err)
		return
	}
	log.Printf("assigned %s to %s", id, name)
}

func (r *reporter) post(ctx context.Context, method, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, r.base+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
