package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	logger "github.com/sirupsen/logrus"

	"github.com/ethpandaops/txrace/types"
)

// LogFatal logs a fatal error with callstack info that skips callerSkip many levels with arbitrarily many additional infos.
// callerSkip equal to 0 gives you info directly where LogFatal is called.
func LogFatal(err error, errorMsg interface{}, callerSkip int, additionalInfos ...map[string]interface{}) {
	logErrorInfo(err, callerSkip, additionalInfos...).Fatal(errorMsg)
}

// LogError logs an error with callstack info that skips callerSkip many levels with arbitrarily many additional infos.
// callerSkip equal to 0 gives you info directly where LogError is called.
func LogError(err error, errorMsg interface{}, callerSkip int, additionalInfos ...map[string]interface{}) {
	logErrorInfo(err, callerSkip, additionalInfos...).Error(errorMsg)
}

func logErrorInfo(err error, callerSkip int, additionalInfos ...map[string]interface{}) *logger.Entry {
	logFields := logger.NewEntry(logger.StandardLogger())

	pc, fullFilePath, line, ok := runtime.Caller(callerSkip + 2)
	if ok {
		logFields = logFields.WithFields(logger.Fields{
			"_file":     filepath.Base(fullFilePath),
			"_function": runtime.FuncForPC(pc).Name(),
			"_line":     line,
		})
	} else {
		logFields = logFields.WithField("runtime", "Callstack cannot be read")
	}

	errColl := []string{}
	for {
		errColl = append(errColl, fmt.Sprint(err))
		nextErr := errors.Unwrap(err)
		if nextErr != nil {
			err = nextErr
		} else {
			break
		}
	}

	errMarkSign := "~"
	for idx := 0; idx < (len(errColl) - 1); idx++ {
		errInfoText := fmt.Sprintf("%serrInfo_%v%s", errMarkSign, idx, errMarkSign)
		nextErrInfoText := fmt.Sprintf("%serrInfo_%v%s", errMarkSign, idx+1, errMarkSign)
		if idx == (len(errColl) - 2) {
			nextErrInfoText = fmt.Sprintf("%serror%s", errMarkSign, errMarkSign)
		}

		// Replace the last occurrence of the next error in the current error
		lastIdx := strings.LastIndex(errColl[idx], errColl[idx+1])
		if lastIdx != -1 {
			errColl[idx] = errColl[idx][:lastIdx] + nextErrInfoText + errColl[idx][lastIdx+len(errColl[idx+1]):]
		}

		errInfoText = strings.ReplaceAll(errInfoText, errMarkSign, "")
		logFields = logFields.WithField(errInfoText, errColl[idx])
	}

	if err != nil {
		logFields = logFields.WithField("errType", fmt.Sprintf("%T", err)).WithError(err)
	}

	for _, infoMap := range additionalInfos {
		for name, info := range infoMap {
			logFields = logFields.WithField(name, info)
		}
	}

	return logFields
}

// LogWriter owns the optional log file opened by InitLogger.
type LogWriter struct {
	mutex sync.Mutex
	file  *os.File
}

func (lw *LogWriter) Dispose() {
	if lw == nil {
		return
	}
	lw.mutex.Lock()
	defer lw.mutex.Unlock()

	if lw.file != nil {
		lw.file.Close()
		lw.file = nil
	}
}

// fileHook copies entries at or above its level into the log file
type fileHook struct {
	writer    *LogWriter
	levels    []logger.Level
	formatter logger.Formatter
}

func (hook *fileHook) Levels() []logger.Level {
	return hook.levels
}

func (hook *fileHook) Fire(entry *logger.Entry) error {
	line, err := hook.formatter.Format(entry)
	if err != nil {
		return err
	}

	hook.writer.mutex.Lock()
	defer hook.writer.mutex.Unlock()
	if hook.writer.file == nil {
		return nil
	}
	_, err = hook.writer.file.Write(line)
	return err
}

// InitLogger configures the standard logrus logger from the logging config.
// The returned LogWriter must be disposed on shutdown.
func InitLogger(cfg *types.Config) (*LogWriter, *logger.Logger) {
	log := logger.StandardLogger()
	logWriter := &LogWriter{}

	var output io.Writer = os.Stdout
	if cfg.Logging.OutputStderr {
		output = os.Stderr
	}
	log.SetOutput(output)

	outputLevel := logger.InfoLevel
	if cfg.Logging.OutputLevel != "" {
		level, err := logger.ParseLevel(cfg.Logging.OutputLevel)
		if err != nil {
			log.Warnf("invalid log output level %q, using info", cfg.Logging.OutputLevel)
		} else {
			outputLevel = level
		}
	}

	if cfg.Logging.FilePath == "" {
		log.SetLevel(outputLevel)
		return logWriter, log
	}

	fileLevel := logger.DebugLevel
	if cfg.Logging.FileLevel != "" {
		level, err := logger.ParseLevel(cfg.Logging.FileLevel)
		if err == nil {
			fileLevel = level
		}
	}

	file, err := os.OpenFile(cfg.Logging.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.SetLevel(outputLevel)
		LogError(err, "error opening log file", 0, map[string]interface{}{"path": cfg.Logging.FilePath})
		return logWriter, log
	}
	logWriter.file = file

	// the logger level is the more verbose of both outputs, the console output filters itself
	log.SetLevel(max(outputLevel, fileLevel))
	log.SetOutput(io.Discard)
	log.AddHook(&fileHook{
		writer:    logWriter,
		levels:    logger.AllLevels[:fileLevel+1],
		formatter: &logger.JSONFormatter{},
	})
	log.AddHook(&consoleHook{
		output:    output,
		levels:    logger.AllLevels[:outputLevel+1],
		formatter: &logger.TextFormatter{},
	})

	return logWriter, log
}

type consoleHook struct {
	mutex     sync.Mutex
	output    io.Writer
	levels    []logger.Level
	formatter logger.Formatter
}

func (hook *consoleHook) Levels() []logger.Level {
	return hook.levels
}

func (hook *consoleHook) Fire(entry *logger.Entry) error {
	line, err := hook.formatter.Format(entry)
	if err != nil {
		return err
	}

	hook.mutex.Lock()
	defer hook.mutex.Unlock()
	_, err = hook.output.Write(line)
	return err
}
