package notifier

import (
	"errors"

	"fxchannel/internal/logger"
)

// TextNotifier 是日报的投递出口。
type TextNotifier interface {
	SendText(text string) error
}

// Multi 依次投递到全部通道，汇总所有失败。
type Multi []TextNotifier

func (m Multi) SendText(text string) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.SendText(text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log 只把消息写入日志。
type Log struct{}

func (Log) SendText(text string) error {
	logger.Infof("[notify] report")
	logger.InfoBlock(text)
	return nil
}
