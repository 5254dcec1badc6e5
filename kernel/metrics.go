package kernel

import (
	"github.com/ethereum/go-ethereum/metrics"
)

var (
	guardPassMeter   = metrics.NewRegisteredMeter("kernel/guard/pass", nil)
	guardRejectMeter = metrics.NewRegisteredMeter("kernel/guard/reject", nil)
	guardErrorMeter  = metrics.NewRegisteredMeter("kernel/guard/error", nil)

	submitTimer     = metrics.NewRegisteredTimer("kernel/submit", nil)
	submitFailMeter = metrics.NewRegisteredMeter("kernel/submit/fail", nil)

	paramFetchCounter = metrics.NewRegisteredCounter("kernel/params/fetch", nil)
)
