package config

import (
	"encoding/json"
	"fmt"

	units "github.com/docker/go-units"
	"gopkg.in/yaml.v3"
)

// ByteSize 字节数
//
// 支持的格式:
//   - 字符串: "16MiB", "4MB", "128m"（二进制单位，见 units.RAMInBytes）
//   - 数字: 字节数
type ByteSize int64

// ParseByteSize 解析字节数字符串
func ParseByteSize(s string) (ByteSize, error) {
	n, err := units.RAMInBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	return ByteSize(n), nil
}

// Bytes 返回字节数
func (b ByteSize) Bytes() int64 { return int64(b) }

// String 返回人类可读的二进制单位表示，例如 "16MiB"
func (b ByteSize) String() string {
	return units.BytesSize(float64(b))
}

// UnmarshalJSON 实现 json.Unmarshaler 接口
func (b *ByteSize) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := ParseByteSize(s)
		if err != nil {
			return err
		}
		*b = v
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*b = ByteSize(n)
		return nil
	}

	return fmt.Errorf("byte size must be a string (e.g., \"16MiB\") or number (bytes)")
}

// MarshalJSON 实现 json.Marshaler 接口
func (b ByteSize) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(b))
}

// UnmarshalYAML 实现 yaml.Unmarshaler 接口
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!int" {
		var n int64
		if err := value.Decode(&n); err != nil {
			return err
		}
		*b = ByteSize(n)
		return nil
	}
	v, err := ParseByteSize(value.Value)
	if err != nil {
		return err
	}
	*b = v
	return nil
}
