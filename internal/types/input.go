package types

import (
	"encoding/json"
	"fmt"
)

// Input 是一个规则变体的参数集；变体之间通过复制再覆盖字段产生，不在模拟中途修改。
type Input struct {
	Length            int
	CloseLength       int
	BandRangeRateMin  int64
	Overflow          int64
	ProfitRateTrigger float64
	Ratio             float64
}

// inputPayload 是持久化/导出使用的 JSON 结构。
type inputPayload struct {
	Length            int              `json:"length" yaml:"length"`
	CloseLength       int              `json:"close_length" yaml:"close_length"`
	BandRangeRate     bandRangePayload `json:"band_range_rate" yaml:"band_range_rate"`
	Overflow          int64            `json:"overflow" yaml:"overflow"`
	ProfitRateTrigger float64          `json:"profit_rate_trigger" yaml:"profit_rate_trigger"`
	Ratio             float64          `json:"ratio" yaml:"ratio"`
}

type bandRangePayload struct {
	Min int64 `json:"min" yaml:"min"`
}

func (in Input) payload() inputPayload {
	return inputPayload{
		Length:            in.Length,
		CloseLength:       in.CloseLength,
		BandRangeRate:     bandRangePayload{Min: in.BandRangeRateMin},
		Overflow:          in.Overflow,
		ProfitRateTrigger: in.ProfitRateTrigger,
		Ratio:             in.Ratio,
	}
}

func (p inputPayload) input() Input {
	return Input{
		Length:            p.Length,
		CloseLength:       p.CloseLength,
		BandRangeRateMin:  p.BandRangeRate.Min,
		Overflow:          p.Overflow,
		ProfitRateTrigger: p.ProfitRateTrigger,
		Ratio:             p.Ratio,
	}
}

func (in Input) MarshalJSON() ([]byte, error) {
	return json.Marshal(in.payload())
}

// UnmarshalJSON 先按 schema 校验，拒绝类型错误、缺字段与越界值。
func (in *Input) UnmarshalJSON(b []byte) error {
	if err := ValidateInputPayload(b); err != nil {
		return err
	}
	var p inputPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*in = p.input()
	return nil
}

func (in Input) MarshalYAML() (any, error) {
	return in.payload(), nil
}

// Validate 以持久化时的 JSON 结构校验全部参数；通道至少需要 2 根 K 线（含被排除的最新一根）。
func (in Input) Validate() error {
	raw, err := json.Marshal(in.payload())
	if err != nil {
		return fmt.Errorf("encode input: %w", err)
	}
	return ValidateInputPayload(raw)
}

// MaxLength 返回两个窗口中较长者。
func (in Input) MaxLength() int {
	if in.CloseLength > in.Length {
		return in.CloseLength
	}
	return in.Length
}
