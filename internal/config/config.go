// Package config holds the tunable surface of the city simulation.
// Values load from a YAML file; anything not set falls back to the defaults
// the city has always run with.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Economy holds the token ledger tunables.
type Economy struct {
	StartingTokens   int64   `yaml:"starting_tokens"`
	DailyBurn        int64   `yaml:"daily_burn"`
	TaxRate          float64 `yaml:"tax_rate"`
	WealthCapPct     float64 `yaml:"wealth_cap_pct"`
	TransferFloor    int64   `yaml:"transfer_floor"`
	TotalSupply      int64   `yaml:"total_supply"`
	WelfareFloor     int64   `yaml:"welfare_floor"`
	WelfareGrant     int64   `yaml:"welfare_grant"`
	SurplusThreshold int64   `yaml:"surplus_threshold"`
	CommunityBonus   int64   `yaml:"community_bonus"`
	MintMonthlyPct   float64 `yaml:"mint_monthly_pct"`
	StrongEarnings   int64   `yaml:"strong_earnings"`
}

// Justice holds police and court tunables.
type Justice struct {
	ColdCaseDays       int     `yaml:"cold_case_days"`
	VictimReportChance float64 `yaml:"victim_report_chance"`
	ArrestConfidence   float64 `yaml:"arrest_confidence"`
	BribeDrift         float64 `yaml:"bribe_drift"`
}

// Gangs holds gang-formation tunables.
type Gangs struct {
	RecruitMoodThreshold float64 `yaml:"recruit_mood_threshold"`
	RecruitTarget        int     `yaml:"recruit_target"`
	FormationChance      float64 `yaml:"formation_chance"`
	ExposureChance       float64 `yaml:"exposure_chance"`
	LeaderMultiplier     float64 `yaml:"leader_multiplier"`
	MemberMultiplier     float64 `yaml:"member_multiplier"`
}

// Events holds event-log and visibility tunables.
type Events struct {
	WitnessChance     float64 `yaml:"witness_chance"`
	BusyWitnessChance float64 `yaml:"busy_witness_chance"`
	PublicKnowers     int     `yaml:"public_knowers"`
	CoLocationRadius  float64 `yaml:"co_location_radius"`
}

// World holds stochastic event and world tunables.
type World struct {
	HeartAttackChance float64 `yaml:"heart_attack_chance"`
	WindfallChance    float64 `yaml:"windfall_chance"`
	PopulationFloor   int     `yaml:"population_floor"`
	MessageTTLDays    int     `yaml:"message_ttl_days"`
	HomeTokenFloor    int64   `yaml:"home_token_floor"`
	AbandonDays       int     `yaml:"abandon_days"`
}

// Reasoning holds external model call tunables.
type Reasoning struct {
	Provider       string  `yaml:"provider"` // "anthropic" | "openai" | "mock"
	Model          string  `yaml:"model"`
	MaxConcurrent  int64   `yaml:"max_concurrent"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxRetries     int     `yaml:"max_retries"`
	Temperature    float64 `yaml:"temperature"`
}

// Config is the full tunable surface of one city.
type Config struct {
	CityName  string    `yaml:"city_name"`
	Seed      int64     `yaml:"seed"`
	ListenAddr string   `yaml:"listen_addr"`
	DBPath    string    `yaml:"db_path"`
	Economy   Economy   `yaml:"economy"`
	Justice   Justice   `yaml:"justice"`
	Gangs     Gangs     `yaml:"gangs"`
	Events    Events    `yaml:"events"`
	World     World     `yaml:"world"`
	Reasoning Reasoning `yaml:"reasoning"`
}

// Default returns the configuration the city has always run with.
func Default() *Config {
	return &Config{
		CityName:   "AIcity",
		Seed:       0,
		ListenAddr: ":8080",
		DBPath:     "aicity.db",
		Economy: Economy{
			StartingTokens:   1000,
			DailyBurn:        100,
			TaxRate:          0.10,
			WealthCapPct:     0.05,
			TransferFloor:    50,
			TotalSupply:      10_000_000,
			WelfareFloor:     200,
			WelfareGrant:     150,
			SurplusThreshold: 50_000,
			CommunityBonus:   25,
			MintMonthlyPct:   0.10,
			StrongEarnings:   150,
		},
		Justice: Justice{
			ColdCaseDays:       14,
			VictimReportChance: 0.60,
			ArrestConfidence:   0.65,
			BribeDrift:         0.05,
		},
		Gangs: Gangs{
			RecruitMoodThreshold: -0.70,
			RecruitTarget:        2,
			FormationChance:      0.30,
			ExposureChance:       0.40,
			LeaderMultiplier:     1.4,
			MemberMultiplier:     1.2,
		},
		Events: Events{
			WitnessChance:     0.15,
			BusyWitnessChance: 0.05,
			PublicKnowers:     5,
			CoLocationRadius:  8.0,
		},
		World: World{
			HeartAttackChance: 0.02,
			WindfallChance:    0.01,
			PopulationFloor:   6,
			MessageTTLDays:    3,
			HomeTokenFloor:    500,
			AbandonDays:       3,
		},
		Reasoning: Reasoning{
			Provider:       "mock",
			Model:          "",
			MaxConcurrent:  4,
			TimeoutSeconds: 30,
			MaxRetries:     2,
			Temperature:    0.7,
		},
	}
}

// Load reads a YAML config file over the defaults.
// A missing path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
