package exchange_test

import (
	"testing"

	"github.com/sufield/trustboot/internal/adapters/secondary/exchange"
	"github.com/sufield/trustboot/internal/contract/exchangechannel"
	"github.com/sufield/trustboot/internal/core/ports"
)

func TestChannel_Conformance(t *testing.T) {
	exchangechannel.Run(t, func(t *testing.T) ports.ExchangeChannel {
		return exchange.New(t.TempDir())
	})
}
