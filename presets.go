package mobiletun

import "github.com/dep2p/go-mobiletun/config"

// ════════════════════════════════════════════════════════════════════════════
//                              预设配置常量
// ════════════════════════════════════════════════════════════════════════════

// 预设名称常量
const (
	// PresetMobile 通用移动端
	PresetMobile = "mobile"

	// PresetAndroid Android VpnService
	PresetAndroid = "android"

	// PresetIOS iOS Network Extension
	PresetIOS = "ios"

	// PresetDesktop 桌面端（默认配置）
	PresetDesktop = "desktop"

	// PresetLowMemory 最小内存占用
	PresetLowMemory = "lowmem"
)

// Presets 返回所有预设名称
func Presets() []string {
	return []string{PresetMobile, PresetAndroid, PresetIOS, PresetDesktop, PresetLowMemory}
}

// ════════════════════════════════════════════════════════════════════════════
//                              预设配置获取
// ════════════════════════════════════════════════════════════════════════════

// GetPresetConfig 返回应用了预设的默认配置
//
// 示例：
//
//	cfg, err := mobiletun.GetPresetConfig(mobiletun.PresetIOS)
//	cfg.Pool.EvictOnClose = true
//	rt, err := mobiletun.New(mobiletun.WithConfig(cfg))
func GetPresetConfig(name string) (*config.Config, error) {
	cfg := config.NewConfig()
	if err := config.ApplyPreset(cfg, name); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetMobileConfig 获取移动端配置
//
// 启用堆驱动内存看门狗，缩短子进程关闭超时。
func GetMobileConfig() *config.Config {
	cfg, _ := GetPresetConfig(PresetMobile)
	return cfg
}

// GetLowMemoryConfig 获取最小内存配置
func GetLowMemoryConfig() *config.Config {
	cfg, _ := GetPresetConfig(PresetLowMemory)
	return cfg
}
