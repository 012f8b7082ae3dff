// drive-auth is a one-shot CLI that mints the offline refresh token the
// report service uses for Drive uploads. Run it once on a machine with a
// browser, grant access, and paste the code back.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/manp-monitoring/report-service/internal/config"
	"github.com/manp-monitoring/report-service/internal/drive"
	"golang.org/x/oauth2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.DriveConfigured() {
		log.Fatal("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set")
	}

	oauthCfg := drive.OAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI)
	url := oauthCfg.AuthCodeURL("state", oauth2.AccessTypeOffline)

	fmt.Println("Open this URL to grant the service access to Drive:")
	fmt.Println()
	fmt.Println(url)
	fmt.Println()

	if cfg.RunMode != "production" {
		if err := openBrowser(url); err != nil {
			log.Printf("Could not open browser: %v", err)
		}
	}

	fmt.Print("Paste the code from the OAuth page here: ")
	reader := bufio.NewReader(os.Stdin)
	code, err := reader.ReadString('\n')
	if err != nil {
		log.Fatalf("Failed to read code: %v", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		log.Fatal("No code entered")
	}

	token, err := oauthCfg.Exchange(context.Background(), code)
	if err != nil {
		log.Fatalf("Failed to exchange code: %v", err)
	}

	tokens := drive.NewTokenStore(cfg.DriveTokenFile)
	if err := tokens.Save(token); err != nil {
		log.Fatalf("Failed to save token: %v", err)
	}

	fmt.Printf("Token saved to %s. The service can now upload to Drive.\n", cfg.DriveTokenFile)
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
