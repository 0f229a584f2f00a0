package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/logging"
	"github.com/hackgods/clinic-scheduling/internal/scheduling"
)

var reasons = []string{
	"General consultation",
	"Prenatal checkup",
	"Postnatal follow-up",
	"Blood pressure review",
	"Ultrasound results",
}

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	CheckRatio   float64
	HotSlots     int // bookings concentrate on this many (doctor, date, time) triples
	Days         int // weekdays ahead to book into
	MotherLimit  int
}

type target struct {
	doctorID uuid.UUID
	date     string
	time     string
}

type DataPool struct {
	Mothers []uuid.UUID
	Doctors []uuid.UUID
	Hot     []target
	Dates   []string
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status >= 200 && status < 300:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

// Percentile returns the latency at p (0..100).
func (om *OperationMetrics) Percentile(p int) time.Duration {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0
	}
	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	idx := len(latencies) * p / 100
	if idx >= len(latencies) {
		idx = len(latencies) - 1
	}
	return latencies[idx]
}

type Metrics struct {
	Booking OperationMetrics
	Check   OperationMetrics
	List    OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
	logger  zerolog.Logger
}

func main() {
	baseCfg, err := config.Load()
	if err != nil {
		boot := logging.New("dev", "info", "simulate")
		boot.Fatal().Err(err).Msg("failed to load base config")
	}
	logger := logging.New(baseCfg.Env, baseCfg.LogLevel, "simulate")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, baseCfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, baseCfg, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("load data pool")
	}
	logger.Info().Int("mothers", len(dataPool.Mothers)).Int("doctors", len(dataPool.Doctors)).
		Int("hot_slots", len(dataPool.Hot)).Msg("data loaded")

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.5),
		CheckRatio:   getFloat("SIM_CHECK_RATIO", 0.3),
		HotSlots:     getInt("SIM_HOT_SLOTS", 20),
		Days:         getInt("SIM_DAYS", 10),
		MotherLimit:  getInt("SIM_MOTHER_LIMIT", 2000),
	}
	if total := cfg.BookingRatio + cfg.CheckRatio; total > 1 {
		cfg.BookingRatio /= total
		cfg.CheckRatio /= total
	}
	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.Days <= 0 || cfg.HotSlots <= 0 {
		return fmt.Errorf("SIM_DAYS and SIM_HOT_SLOTS must be > 0")
	}
	return nil
}

// loadDataPool picks real users and builds a small set of contested slots on
// upcoming weekdays.
func loadDataPool(ctx context.Context, pool *pgxpool.Pool, base config.Config, cfg SimConfig) (*DataPool, error) {
	dp := &DataPool{}

	rows, err := pool.Query(ctx, `
		SELECT id FROM users
		WHERE role = 'mother' AND account_status = 'active' AND is_active
		LIMIT $1
	`, cfg.MotherLimit)
	if err != nil {
		return nil, fmt.Errorf("load mothers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dp.Mothers = append(dp.Mothers, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	doctors, err := identity.NewPgDirectory(pool, base.Location).ActiveDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("load doctors: %w", err)
	}
	for _, d := range doctors {
		dp.Doctors = append(dp.Doctors, d.ID)
	}

	if len(dp.Mothers) == 0 {
		return nil, fmt.Errorf("no mothers loaded, run seed users first")
	}
	if len(dp.Doctors) == 0 {
		return nil, fmt.Errorf("no doctors loaded, run seed users first")
	}

	day := scheduling.DateOf(time.Now().In(base.Location)).AddDate(0, 0, 1)
	for len(dp.Dates) < cfg.Days {
		if !scheduling.WeekdayOf(day).Weekend() {
			dp.Dates = append(dp.Dates, day.Format(time.DateOnly))
		}
		day = day.AddDate(0, 0, 1)
	}

	for i := 0; i < cfg.HotSlots; i++ {
		start := scheduling.DefaultWindowStart.Add(time.Duration(gofakeit.Number(0, 15)) * 30 * time.Minute)
		dp.Hot = append(dp.Hot, target{
			doctorID: dp.Doctors[gofakeit.Number(0, len(dp.Doctors)-1)],
			date:     dp.Dates[gofakeit.Number(0, len(dp.Dates)-1)],
			time:     start.String(),
		})
	}

	return dp, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info().Dur("duration", s.config.Duration).Int("workers", s.config.Workers).Msg("starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for ctx.Err() == nil {
		r := rng.Float64()
		switch {
		case r < s.config.BookingRatio:
			s.doBooking(ctx, rng)
		case r < s.config.BookingRatio+s.config.CheckRatio:
			s.doCheck(ctx, rng)
		default:
			s.doList(ctx, rng)
		}
	}
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	t := s.pool.Hot[rng.Intn(len(s.pool.Hot))]
	mother := s.pool.Mothers[rng.Intn(len(s.pool.Mothers))]

	body, _ := json.Marshal(map[string]string{
		"doctor_id": t.doctorID.String(),
		"date":      t.date,
		"time":      t.time,
		"reason":    reasons[gofakeit.Number(0, len(reasons)-1)],
	})
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/appointments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", mother.String())

	s.send(req, &s.metrics.Booking)
}

func (s *Simulator) doCheck(ctx context.Context, rng *rand.Rand) {
	doctor := s.pool.Doctors[rng.Intn(len(s.pool.Doctors))]
	date := s.pool.Dates[rng.Intn(len(s.pool.Dates))]

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/availability/check?doctor_id=%s&date=%s", s.config.APIBaseURL, doctor, date), nil)

	s.send(req, &s.metrics.Check)
}

func (s *Simulator) doList(ctx context.Context, rng *rand.Rand) {
	mother := s.pool.Mothers[rng.Intn(len(s.pool.Mothers))]

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIBaseURL+"/appointments?limit=20", nil)
	req.Header.Set("X-User-ID", mother.String())

	s.send(req, &s.metrics.List)
}

func (s *Simulator) send(req *http.Request, om *OperationMetrics) {
	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	if err != nil {
		if req.Context().Err() == nil {
			om.Record(latency, 0)
		}
		return
	}
	resp.Body.Close()
	om.Record(latency, resp.StatusCode)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Contested slots: %d\n\n", len(s.pool.Hot))

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Availability check", &s.metrics.Check)
	printOperationReport("List appointments", &s.metrics.List)

	booked := atomic.LoadInt64(&s.metrics.Booking.Success)
	if booked > int64(len(s.pool.Hot)) {
		fmt.Printf("WARNING: %d bookings succeeded for %d contested slots\n", booked, len(s.pool.Hot))
	}
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Rejected: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: p50=%s p95=%s p99=%s\n",
		om.Percentile(50).Round(time.Millisecond),
		om.Percentile(95).Round(time.Millisecond),
		om.Percentile(99).Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
