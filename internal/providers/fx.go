package providers

import (
	"github.com/smallbiznis/autobill/internal/providers/email"
	"github.com/smallbiznis/autobill/internal/providers/slack"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	slack.Module,
)
