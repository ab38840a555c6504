package ports

import "time"

type Policy struct {
	QueueCapacity int           `yaml:"queue_capacity"`
	IdleSleep     time.Duration `yaml:"idle_sleep"`
	SampleTimeout time.Duration `yaml:"sample_timeout"`

	OnQueueFull string `yaml:"on_queue_full"` // "block", "drop", "reject"
}
