package pipeline

import (
	"github.com/QuantumFusion-network/pvm-dapp-demo/log"
)

func logPipeline(job, subject string, context ...interface{}) {
	log.Info("["+job+"] "+subject, context...)
}

func logPipelineWarn(job, subject string, context ...interface{}) {
	log.Warn("["+job+"] "+subject, context...)
}

func logPipelineError(job, subject string, err error, context ...interface{}) {
	fields := []interface{}{"err", err}
	fields = append(fields, context...)
	log.Error("["+job+"] "+subject, fields...)
}

func logPipelineTrace(job, subject string, context ...interface{}) {
	log.Trace("["+job+"] "+subject, context...)
}
