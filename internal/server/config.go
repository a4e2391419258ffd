package server

import "time"

// Config collects everything needed to stand up the hub's HTTP/WebSocket
// server. It is populated by cmd/tasklisthubd from CLI flags and
// environment variables via jessevdk/go-flags.
type Config struct {
	// ListenAddr is the address the HTTP server binds to, e.g. ":8080".
	ListenAddr string `long:"listen-addr" env:"TASKLISTHUB_LISTEN_ADDR" default:":8080" description:"address to bind the HTTP/WebSocket server to"`

	// StoreBackend selects the durable log store: "sqlite" or "mysql".
	StoreBackend string `long:"store-backend" env:"TASKLISTHUB_STORE_BACKEND" default:"sqlite" description:"durable log store backend (sqlite or mysql)"`

	// StoreDSN is the sqlite file path or MySQL data source name.
	StoreDSN string `long:"store-dsn" env:"TASKLISTHUB_STORE_DSN" default:"tasklisthub.db" description:"store connection string (sqlite file path or MySQL DSN)"`

	// JWTSecret is the HMAC key used to validate handshake API keys.
	JWTSecret string `long:"jwt-secret" env:"TASKLISTHUB_JWT_SECRET" description:"HMAC secret used to validate session JWTs"`

	// IdleCellGrace is how long a per-user cell may sit with zero
	// subscribers before the registry evicts it. Zero disables eviction.
	IdleCellGrace time.Duration `long:"idle-cell-grace" env:"TASKLISTHUB_IDLE_CELL_GRACE" default:"10m" description:"how long an empty cell survives before eviction; 0 disables eviction"`

	// BroadcastCapacity is the per-subscriber channel size for a cell's
	// broadcast hub.
	BroadcastCapacity int `long:"broadcast-capacity" env:"TASKLISTHUB_BROADCAST_CAPACITY" default:"1000" description:"per-subscriber broadcast channel capacity"`

	// MetricsAddr, if non-empty, serves /metrics on its own listener
	// separate from the main WebSocket traffic.
	MetricsAddr string `long:"metrics-addr" env:"TASKLISTHUB_METRICS_ADDR" default:":9090" description:"address to serve Prometheus metrics on"`

	// LogJSON selects JSON-formatted structured logs instead of text.
	LogJSON bool `long:"log-json" env:"TASKLISTHUB_LOG_JSON" description:"emit structured logs as JSON instead of text"`
}
