package main

import "l10n-phrasebook/internal/cli"

func main() {
	cli.Execute()
}
