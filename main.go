package main

import "github.com/ramanveerji/dhcpsuperv/internal/home"

func main() {
	home.Main()
}
