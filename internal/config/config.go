package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/clawcombat/arena/internal/game"
)

type statPresetEntry struct {
	Type           string `json:"type"`
	HitPoints      int    `json:"hit_points"`
	Attack         int    `json:"attack"`
	Defense        int    `json:"defense"`
	SpecialAttack  int    `json:"special_attack"`
	SpecialDefense int    `json:"special_defense"`
	Speed          int    `json:"speed"`
}

type rawConfig struct {
	Server *struct {
		Address string `json:"address"`
	} `json:"server"`
	Battle *struct {
		MaxTurns               int `json:"max_turns"`
		TurnTimeoutSeconds     int `json:"turn_timeout_seconds"`
		QueueBandWidth         int `json:"queue_band_width"`
		QueueStaleMinutes      int `json:"queue_stale_minutes"`
		CompletedRetentionDays int `json:"completed_retention_days"`
	} `json:"battle"`
	Progression *struct {
		StartingLevel      int `json:"starting_level"`
		ExperiencePerLevel int `json:"experience_per_level"`
		WinExperience      int `json:"win_experience"`
		DrawExperience     int `json:"draw_experience"`
		LossExperience     int `json:"loss_experience"`
		MoveSlots          int `json:"move_slots"`
	} `json:"progression"`
	TypeChart   []game.TypeMatchup `json:"type_chart"`
	MoveList    []game.Move        `json:"move_list"`
	StatPresets []statPresetEntry  `json:"stat_presets"`
}

// BattleSettings tunes how battles and the matchmaking queue behave.
type BattleSettings struct {
	MaxTurns           int
	TurnTimeout        time.Duration
	QueueBandWidth     int
	QueueStaleAfter    time.Duration
	CompletedRetention time.Duration
}

// ProgressionSettings tunes levels and the experience awarded per result.
type ProgressionSettings struct {
	StartingLevel      int
	ExperiencePerLevel int
	WinExperience      int
	DrawExperience     int
	LossExperience     int
	MoveSlots          int
}

// LoadedConfig contains the game rules to run with and the server address to
// bind to.
type LoadedConfig struct {
	ServerAddress string
	Battle        BattleSettings
	Progression   ProgressionSettings
	TypeChart     []game.TypeMatchup
	Moves         []game.Move
	StatPresets   map[game.ElementType]game.BaseStats
}

var validMultipliers = map[float64]bool{0: true, 0.5: true, 1: true, 2: true}

// LoadConfig reads the configuration file at path and returns the validated
// game rules. It requires `type_chart`, `move_list` and `stat_presets`
// (snake_case); missing tuning sections fall back to defaults.
func LoadConfig(path string) (*LoadedConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var rc rawConfig
	if err := json.Unmarshal(b, &rc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	out := &LoadedConfig{
		ServerAddress: ":8080",
		Battle: BattleSettings{
			MaxTurns:           50,
			TurnTimeout:        30 * time.Second,
			QueueBandWidth:     10,
			QueueStaleAfter:    10 * time.Minute,
			CompletedRetention: 7 * 24 * time.Hour,
		},
		Progression: ProgressionSettings{
			StartingLevel:      5,
			ExperiencePerLevel: 100,
			WinExperience:      60,
			DrawExperience:     30,
			LossExperience:     15,
			MoveSlots:          4,
		},
	}
	if rc.Server != nil && rc.Server.Address != "" {
		out.ServerAddress = rc.Server.Address
	}

	if err := applyBattle(&rc, out, path); err != nil {
		return nil, err
	}
	if err := applyProgression(&rc, out, path); err != nil {
		return nil, err
	}
	if err := loadTypeChart(&rc, out, path); err != nil {
		return nil, err
	}
	if err := loadMoves(&rc, out, path); err != nil {
		return nil, err
	}
	if err := loadStatPresets(&rc, out, path); err != nil {
		return nil, err
	}
	return out, nil
}

func applyBattle(rc *rawConfig, out *LoadedConfig, path string) error {
	if rc.Battle == nil {
		return nil
	}
	b := rc.Battle
	if b.MaxTurns < 0 || b.TurnTimeoutSeconds < 0 || b.QueueBandWidth < 0 ||
		b.QueueStaleMinutes < 0 || b.CompletedRetentionDays < 0 {
		return fmt.Errorf("config file %s: battle settings must not be negative", path)
	}
	if b.MaxTurns > 0 {
		out.Battle.MaxTurns = b.MaxTurns
	}
	if b.TurnTimeoutSeconds > 0 {
		out.Battle.TurnTimeout = time.Duration(b.TurnTimeoutSeconds) * time.Second
	}
	if b.QueueBandWidth > 0 {
		out.Battle.QueueBandWidth = b.QueueBandWidth
	}
	if b.QueueStaleMinutes > 0 {
		out.Battle.QueueStaleAfter = time.Duration(b.QueueStaleMinutes) * time.Minute
	}
	if b.CompletedRetentionDays > 0 {
		out.Battle.CompletedRetention = time.Duration(b.CompletedRetentionDays) * 24 * time.Hour
	}
	return nil
}

func applyProgression(rc *rawConfig, out *LoadedConfig, path string) error {
	if rc.Progression == nil {
		return nil
	}
	p := rc.Progression
	if p.StartingLevel < 0 || p.ExperiencePerLevel < 0 || p.WinExperience < 0 ||
		p.DrawExperience < 0 || p.LossExperience < 0 || p.MoveSlots < 0 {
		return fmt.Errorf("config file %s: progression settings must not be negative", path)
	}
	if p.StartingLevel > 0 {
		if p.StartingLevel < game.MinLevel || p.StartingLevel > game.MaxLevel {
			return fmt.Errorf("config file %s: starting_level %d outside %d..%d", path, p.StartingLevel, game.MinLevel, game.MaxLevel)
		}
		out.Progression.StartingLevel = p.StartingLevel
	}
	if p.ExperiencePerLevel > 0 {
		out.Progression.ExperiencePerLevel = p.ExperiencePerLevel
	}
	if p.WinExperience > 0 {
		out.Progression.WinExperience = p.WinExperience
	}
	if p.DrawExperience > 0 {
		out.Progression.DrawExperience = p.DrawExperience
	}
	if p.LossExperience > 0 {
		out.Progression.LossExperience = p.LossExperience
	}
	if p.MoveSlots > 0 {
		if p.MoveSlots > game.MaxMoveSlots {
			return fmt.Errorf("config file %s: move_slots %d exceeds the maximum of %d", path, p.MoveSlots, game.MaxMoveSlots)
		}
		out.Progression.MoveSlots = p.MoveSlots
	}
	return nil
}

func loadTypeChart(rc *rawConfig, out *LoadedConfig, path string) error {
	if len(rc.TypeChart) == 0 {
		return fmt.Errorf("config file %s: type_chart is empty (provide 'type_chart' array)", path)
	}
	seen := make(map[[2]game.ElementType]struct{}, len(rc.TypeChart))
	for _, m := range rc.TypeChart {
		atk, err := game.ParseElementType(string(m.Attacking))
		if err != nil {
			return fmt.Errorf("config file %s: type_chart attacking side: %w", path, err)
		}
		def, err := game.ParseElementType(string(m.Defending))
		if err != nil {
			return fmt.Errorf("config file %s: type_chart defending side: %w", path, err)
		}
		if !validMultipliers[m.Multiplier] {
			return fmt.Errorf("config file %s: type_chart %s->%s multiplier %v not one of 0, 0.5, 1, 2", path, atk, def, m.Multiplier)
		}
		pair := [2]game.ElementType{atk, def}
		if _, dup := seen[pair]; dup {
			return fmt.Errorf("config file %s: duplicate type_chart entry %s->%s", path, atk, def)
		}
		seen[pair] = struct{}{}
		out.TypeChart = append(out.TypeChart, game.TypeMatchup{Attacking: atk, Defending: def, Multiplier: m.Multiplier})
	}
	return nil
}

func loadMoves(rc *rawConfig, out *LoadedConfig, path string) error {
	if len(rc.MoveList) == 0 {
		return fmt.Errorf("config file %s: move_list is empty (provide 'move_list' array)", path)
	}
	keySet := make(map[string]struct{}, len(rc.MoveList))
	for _, m := range rc.MoveList {
		key := strings.TrimSpace(m.Key)
		if key == "" {
			return fmt.Errorf("config file %s: move entry missing 'key'", path)
		}
		if key == game.DefaultMoveKey {
			return fmt.Errorf("config file %s: move key %q is reserved", path, game.DefaultMoveKey)
		}
		if _, dup := keySet[key]; dup {
			return fmt.Errorf("config file %s: duplicate move key %q", path, key)
		}
		keySet[key] = struct{}{}
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("config file %s: move %q missing 'name'", path, key)
		}

		if m.Type != game.TypeNone {
			t, err := game.ParseElementType(string(m.Type))
			if err != nil {
				return fmt.Errorf("config file %s: move %q: %w", path, key, err)
			}
			m.Type = t
		}
		switch m.Category {
		case game.CategoryPhysical, game.CategorySpecial:
			if m.Power < 1 {
				return fmt.Errorf("config file %s: move %q deals damage but has power %d", path, key, m.Power)
			}
		case game.CategoryStatus:
			if m.Power != 0 {
				return fmt.Errorf("config file %s: status move %q must have power 0, got %d", path, key, m.Power)
			}
		default:
			return fmt.Errorf("config file %s: move %q has unknown category %q", path, key, m.Category)
		}
		if m.Accuracy <= 0 {
			m.Accuracy = 100
		}
		if m.Accuracy > 100 {
			return fmt.Errorf("config file %s: move %q accuracy %d exceeds 100", path, key, m.Accuracy)
		}
		if err := validateEffect(&m, path); err != nil {
			return err
		}
		m.Key = key
		out.Moves = append(out.Moves, m)
	}
	return nil
}

func validateEffect(m *game.Move, path string) error {
	eff := &m.Effect
	switch eff.Ailment {
	case game.ConditionNone, game.ConditionBurn, game.ConditionParalysis, game.ConditionPoison:
	default:
		return fmt.Errorf("config file %s: move %q has unknown ailment %q", path, m.Key, eff.Ailment)
	}
	if eff.Ailment != game.ConditionNone && eff.AilmentChance <= 0 {
		// A configured ailment without a chance is taken as guaranteed.
		eff.AilmentChance = 100
	}
	if eff.AilmentChance > 100 {
		return fmt.Errorf("config file %s: move %q ailment_chance %d exceeds 100", path, m.Key, eff.AilmentChance)
	}
	for _, sc := range eff.StageChanges {
		switch sc.Stat {
		case game.StatAttack, game.StatDefense, game.StatSpecialAttack, game.StatSpecialDefense, game.StatSpeed:
		default:
			return fmt.Errorf("config file %s: move %q stage change targets unknown stat %q", path, m.Key, sc.Stat)
		}
		if sc.Delta == 0 || sc.Delta < game.MinStage || sc.Delta > game.MaxStage {
			return fmt.Errorf("config file %s: move %q stage delta %d outside %d..%d", path, m.Key, sc.Delta, game.MinStage, game.MaxStage)
		}
	}
	return nil
}

func loadStatPresets(rc *rawConfig, out *LoadedConfig, path string) error {
	if len(rc.StatPresets) == 0 {
		return fmt.Errorf("config file %s: stat_presets is empty (provide 'stat_presets' array)", path)
	}
	out.StatPresets = make(map[game.ElementType]game.BaseStats, len(rc.StatPresets))
	for _, p := range rc.StatPresets {
		t, err := game.ParseElementType(p.Type)
		if err != nil {
			return fmt.Errorf("config file %s: stat preset: %w", path, err)
		}
		if _, dup := out.StatPresets[t]; dup {
			return fmt.Errorf("config file %s: duplicate stat preset for type %q", path, t)
		}
		if p.HitPoints < 1 || p.Attack < 1 || p.Defense < 1 ||
			p.SpecialAttack < 1 || p.SpecialDefense < 1 || p.Speed < 1 {
			return fmt.Errorf("config file %s: stat preset for type %q has a non-positive stat", path, t)
		}
		out.StatPresets[t] = game.BaseStats{
			HitPoints:      p.HitPoints,
			Attack:         p.Attack,
			Defense:        p.Defense,
			SpecialAttack:  p.SpecialAttack,
			SpecialDefense: p.SpecialDefense,
			Speed:          p.Speed,
		}
	}
	var missing []string
	for _, t := range game.AllElementTypes {
		if _, ok := out.StatPresets[t]; !ok {
			missing = append(missing, string(t))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("config file %s: stat_presets missing types: %s", path, strings.Join(missing, ", "))
	}
	return nil
}
