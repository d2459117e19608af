package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/dep2p/go-mobiletun/config"
)

// envPrefix 环境变量前缀，例如 MOBILETUN_POOL_BATCH_SIZE
const envPrefix = "MOBILETUN"

// ═══════════════════════════════════════════════════════════════════════════
// 配置加载
// ═══════════════════════════════════════════════════════════════════════════
//
// 优先级（高到低）：环境变量 > 配置文件 > 默认值。
// 预设在三者合并之后应用，只覆盖预设涉及的字段。
//
// viper 只负责合并来源，最终仍经 config.FromJSON 解码，
// 因此 Duration/ByteSize 的字符串形式在三种来源中都可用。
//
// ═══════════════════════════════════════════════════════════════════════════

// newViper 创建绑定了默认值与环境变量的 viper 实例
func newViper() (*viper.Viper, map[string]any, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults, err := flatDefaults()
	if err != nil {
		return nil, nil, err
	}
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	return v, defaults, nil
}

// loadConfig 合并默认值、配置文件与环境变量，然后应用预设
func loadConfig(v *viper.Viper, defaults map[string]any, file, preset string) (*config.Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	nested := map[string]any{}
	for key, def := range defaults {
		setNested(nested, strings.Split(key, "."), coerce(def, v.Get(key)))
	}

	data, err := json.Marshal(nested)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	cfg, err := config.FromJSON(data)
	if err != nil {
		return nil, err
	}

	if preset != "" {
		if err := config.ApplyPreset(cfg, preset); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// flatDefaults 把默认配置展开为 "section.key" 形式的叶子值
func flatDefaults() (map[string]any, error) {
	data, err := config.ToJSON(config.NewConfig())
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, err
	}

	out := map[string]any{}
	flatten("", tree, out)

	// omitempty 字段不出现在默认 JSON 中，仍需可被环境变量覆盖
	if _, ok := out["pool.plugin_path"]; !ok {
		out["pool.plugin_path"] = ""
	}
	if _, ok := out["signal.initial_mask"]; !ok {
		out["signal.initial_mask"] = []any{}
	}
	return out, nil
}

func flatten(prefix string, tree map[string]any, out map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			flatten(key, sub, out)
			continue
		}
		out[key] = val
	}
}

func setNested(tree map[string]any, path []string, val any) {
	for _, p := range path[:len(path)-1] {
		sub, ok := tree[p].(map[string]any)
		if !ok {
			sub = map[string]any{}
			tree[p] = sub
		}
		tree = sub
	}
	tree[path[len(path)-1]] = val
}

// coerce 把来源值转换为默认值的 JSON 类型
//
// 环境变量总是字符串；无法转换时保留原值，交给 config 的解码器处理
// （例如 ByteSize 既接受数字也接受 "16MiB"）。
func coerce(def, raw any) any {
	if raw == nil {
		return def
	}
	var (
		out any
		err error
	)
	switch def.(type) {
	case float64:
		out, err = cast.ToFloat64E(raw)
	case bool:
		out, err = cast.ToBoolE(raw)
	case string:
		out, err = cast.ToStringE(raw)
	case []any:
		if s, ok := raw.(string); ok {
			return coerceList(s)
		}
		return raw
	default:
		return raw
	}
	if err != nil {
		return raw
	}
	return out
}

// coerceList 解析逗号分隔的列表，例如 "0.5,0.75,0.9"
func coerceList(s string) []any {
	s = strings.TrimSpace(s)
	if s == "" {
		return []any{}
	}
	parts := strings.Split(s, ",")
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if f, err := cast.ToFloat64E(p); err == nil {
			out = append(out, f)
			continue
		}
		out = append(out, p)
	}
	return out
}
