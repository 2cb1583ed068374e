package conf

import (
	"encoding/json"
	"fmt"
	"time"
)

// Bootstrap is the root of configs/config.yaml.
type Bootstrap struct {
	Server *Server `json:"server"`
	Data   *Data   `json:"data"`
	Game   *Game   `json:"game"`
}

type Server struct {
	Http *Server_HTTP `json:"http"`
}

type Server_HTTP struct {
	Network string   `json:"network"`
	Addr    string   `json:"addr"`
	Timeout Duration `json:"timeout"`
}

type Data struct {
	Backend  *Data_Backend  `json:"backend"`
	Redis    *Data_Redis    `json:"redis"`
	Database *Data_Database `json:"database"`
	Rabbitmq *Data_Rabbitmq `json:"rabbitmq"`
}

// Data_Backend points at the authority. An empty endpoint runs the offline demo backend.
type Data_Backend struct {
	Endpoint string   `json:"endpoint"`
	Timeout  Duration `json:"timeout"`
	Seed     uint64   `json:"seed"` // demo backend only
}

type Data_Redis struct {
	Addr     string `json:"addr"`
	TokenKey string `json:"token_key"`
}

type Data_Database struct {
	Driver string `json:"driver"`
	Source string `json:"source"`
}

type Data_Rabbitmq struct {
	Host     string `json:"host"`
	Port     int64  `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	Vhost    string `json:"vhost"`
	Exchange string `json:"exchange"`
}

// Game holds the rules and pacing of the replay engine.
type Game struct {
	DemoMode         bool          `json:"demo_mode"`
	MinClusterCount  int           `json:"min_cluster_count"`
	ScatterBase      int           `json:"scatter_base"`
	ScatterBonus     int           `json:"scatter_bonus"`
	FreeSpinTable    map[int]int   `json:"free_spin_table"`
	RetriggerSpins   int           `json:"retrigger_spins"`
	HazardMode       string        `json:"hazard_mode"`
	OverlayTiers     []float64     `json:"overlay_tiers"`
	EnhancedBetRatio float64       `json:"enhanced_bet_ratio"`
	BuyFeatureRatio  float64       `json:"buy_feature_ratio"`
	Delays           *Game_Delays  `json:"delays"`
	Animation        *Game_Animate `json:"animation"`
}

// Game_Delays are the fixed deadline timers of the pipeline.
type Game_Delays struct {
	Anticipation    Duration `json:"anticipation"`
	Explosion       Duration `json:"explosion"`
	ExplosionGap    Duration `json:"explosion_gap"`
	InputLock       Duration `json:"input_lock"`
	AutoDismiss     Duration `json:"auto_dismiss"`
	Lockout         Duration `json:"lockout"`
	MinSpinInterval Duration `json:"min_spin_interval"`
}

// Game_Animate drives the headless animator.
type Game_Animate struct {
	SpinIn  Duration `json:"spin_in"`
	Cluster Duration `json:"cluster"`
	Drop    Duration `json:"drop"`
	Fly     Duration `json:"fly"`
}

// Duration decodes "1.5s" style strings as well as plain nanoseconds.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case float64:
		d.Duration = time.Duration(x)
	case string:
		p, err := time.ParseDuration(x)
		if err != nil {
			return err
		}
		d.Duration = p
	case nil:
		d.Duration = 0
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
	return nil
}

// AsDuration mirrors durationpb so call sites read like the generated config.
func (d Duration) AsDuration() time.Duration {
	return d.Duration
}
