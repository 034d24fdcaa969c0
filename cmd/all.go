package cmd

import (
	_ "infra-cli/cmd/env"
	_ "infra-cli/cmd/list"
	_ "infra-cli/cmd/root"
	_ "infra-cli/cmd/tunnel"
)
