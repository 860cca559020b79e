package log

import (
	"net/netip"
	"unicode/utf8"

	"go.uber.org/zap"
)

func ByteField(key string, data []byte) zap.Field {
	if utf8.Valid(data) {
		return zap.ByteString(key, data)
	} else {
		return zap.Binary(key, data)
	}
}

func Addr(addr netip.Addr) zap.Field {
	return zap.Stringer("ip", addr)
}

func Stage(stage string) zap.Field {
	return zap.String("stage", stage)
}
