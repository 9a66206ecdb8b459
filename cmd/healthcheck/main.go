package main

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/clawcombat/arena/internal/constants"
)

// Minimal liveness probe for container healthchecks: exits zero when
// the arena server answers its health route.
func main() {
	addr := os.Getenv(constants.EnvAddress)
	if addr == "" {
		addr = ":8080"
	}
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + constants.RouteHealth)
	if err != nil {
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
	os.Exit(0)
}
