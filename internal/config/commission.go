package config

import (
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	commissiondomain "github.com/tastelanc/backoffice/internal/commission/domain"
)

// CommissionConfigHolder serves the current commission plan table. The table
// is replaced on file change only when the new content validates.
type CommissionConfigHolder struct {
	current atomic.Value // holds commissiondomain.PlanTable
	log     *zap.Logger
}

// CommissionConfigPaths lists the directories searched for commission.yml.
var CommissionConfigPaths = []string{"/etc/tastelanc", "./config", "."}

func NewCommissionConfigHolder(log *zap.Logger) (*CommissionConfigHolder, error) {
	return newCommissionConfigHolder(log, CommissionConfigPaths, true)
}

// LoadCommissionConfig reads commission.yml once from paths without watching
// for changes.
func LoadCommissionConfig(log *zap.Logger, paths ...string) (*CommissionConfigHolder, error) {
	if len(paths) == 0 {
		paths = CommissionConfigPaths
	}
	return newCommissionConfigHolder(log, paths, false)
}

func newCommissionConfigHolder(log *zap.Logger, paths []string, watch bool) (*CommissionConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	v := viper.New()

	v.SetConfigName("commission")
	v.SetConfigType("yml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("TASTELANC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fromFile := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fromFile = false
	}

	cfg := commissiondomain.DefaultPlanTable()
	if fromFile {
		var loaded commissiondomain.PlanTable
		if err := v.UnmarshalKey("commission", &loaded); err != nil {
			return nil, err
		}
		if err := loaded.Validate(); err != nil {
			return nil, err
		}
		cfg = loaded
	}

	holder := &CommissionConfigHolder{log: log.Named("commission.config")}
	holder.current.Store(cfg)
	holder.log.Info("commission plan table loaded",
		zap.Bool("from_file", fromFile),
		zap.String("file", v.ConfigFileUsed()),
		zap.Strings("plans", cfg.PlanNames()),
	)

	if watch && fromFile {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			holder.reload(v, e.Name)
		})
	}

	return holder, nil
}

func (h *CommissionConfigHolder) reload(v *viper.Viper, source string) {
	var updated commissiondomain.PlanTable
	if err := v.UnmarshalKey("commission", &updated); err != nil {
		h.log.Warn("commission config reload failed", zap.String("file", source), zap.Error(err))
		return
	}
	if err := updated.Validate(); err != nil {
		h.log.Warn("invalid commission config ignored", zap.String("file", source), zap.Error(err))
		return
	}
	h.current.Store(updated)
	h.log.Info("commission config reloaded", zap.String("file", source), zap.Strings("plans", updated.PlanNames()))
}

// Get returns the active plan table.
func (h *CommissionConfigHolder) Get() commissiondomain.PlanTable {
	return h.current.Load().(commissiondomain.PlanTable)
}

// NewStaticCommissionConfigHolder wraps a fixed table, for tests and the CLI.
func NewStaticCommissionConfigHolder(table commissiondomain.PlanTable) *CommissionConfigHolder {
	holder := &CommissionConfigHolder{log: zap.NewNop()}
	holder.current.Store(table)
	return holder
}
