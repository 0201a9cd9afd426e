// Package audit writes an append-only JSON trail of rule evaluations and
// effect deliveries to a dedicated log file, separate from process logs.
package audit

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Collector interface {
	RecordEvaluation(formId string, ruleId string, ruleName string, triggered bool, errMsg string)
	RecordDelivery(descriptorId string, descriptorType string, target string, success bool, reason string)
}

type LogFileCollector struct {
	fileName string
	logger   *zap.Logger
}

var _ Collector = new(LogFileCollector)

func NewLogFileCollector(fileName string) (*LogFileCollector, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.StacktraceKey = ""
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)
	logFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	writer := zapcore.AddSync(logFile)
	core := zapcore.NewTee(zapcore.NewCore(fileEncoder, writer, zapcore.InfoLevel))
	return &LogFileCollector{
		fileName: fileName,
		logger:   zap.New(core),
	}, nil
}

func (lc *LogFileCollector) RecordEvaluation(formId string, ruleId string, ruleName string, triggered bool, errMsg string) {
	lc.logger.Info("evaluation",
		zap.String("formId", formId),
		zap.String("ruleId", ruleId),
		zap.String("rule", ruleName),
		zap.Bool("triggered", triggered),
		zap.String("error", errMsg))
}

func (lc *LogFileCollector) RecordDelivery(descriptorId string, descriptorType string, target string, success bool, reason string) {
	lc.logger.Info("delivery",
		zap.String("descriptorId", descriptorId),
		zap.String("type", descriptorType),
		zap.String("target", target),
		zap.Bool("success", success),
		zap.String("reason", reason))
}

// NopCollector discards all records; used when no audit file is configured
// and in tests.
type NopCollector struct{}

var _ Collector = NopCollector{}

func (NopCollector) RecordEvaluation(string, string, string, bool, string) {}

func (NopCollector) RecordDelivery(string, string, string, bool, string) {}
