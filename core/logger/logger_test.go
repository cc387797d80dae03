package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	testCases := []struct {
		name      string
		level     string
		format    string
		wantLevel logrus.Level
		wantJSON  bool
	}{
		{name: "defaults", wantLevel: logrus.WarnLevel},
		{name: "debug text", level: "debug", format: "text", wantLevel: logrus.DebugLevel},
		{name: "info json", level: "info", format: "JSON", wantLevel: logrus.InfoLevel, wantJSON: true},
		{name: "garbage level", level: "loud", wantLevel: logrus.WarnLevel},
		{name: "padded level", level: " error ", wantLevel: logrus.ErrorLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := New(tc.level, tc.format)
			require.Equal(t, tc.wantLevel, l.GetLevel())

			_, isJSON := l.Formatter.(*logrus.JSONFormatter)
			require.Equal(t, tc.wantJSON, isJSON)
		})
	}
}

func TestLoggerIsShared(t *testing.T) {
	require.Same(t, Logger(), Logger())
}
