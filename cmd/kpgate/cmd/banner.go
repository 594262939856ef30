package cmd

import (
	"fmt"

	"github.com/kpgate/kpgate/api"
)

const banner = `
  _                     _
 | | ___ __   __ _ __ _| |_ ___
 | |/ / '_ \ / _` + "`" + ` |/ _` + "`" + ` | __/ _ \
 |   <| |_) | (_| | (_| | ||  __/
 |_|\_\ .__/ \__, |\__,_|\__\___|
      |_|    |___/
`

func printBanner() {
	fmt.Printf("\x1b[34m%s\x1b[0m", banner)
	fmt.Printf("\x1b[32m  KeePassXC Gateway - Version %s\x1b[0m\n\n", api.Version)
}
