package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once       sync.Once
	collectors []prometheus.Collector
)

// register is called by init() in each metrics file to enqueue collectors.
func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// MustRegister registers the billing collectors with the default registry once.
func MustRegister() {
	once.Do(func() { MustRegisterWith(prometheus.DefaultRegisterer) })
}

// MustRegisterWith registers the billing collectors with reg.
func MustRegisterWith(reg prometheus.Registerer) {
	if len(collectors) > 0 {
		reg.MustRegister(collectors...)
	}
}
