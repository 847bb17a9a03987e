package fleetauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"davidallendj/fleetauth/internal/api"
	cache "davidallendj/fleetauth/internal/cache/sqlite"
	"davidallendj/fleetauth/internal/fleet"

	"github.com/davidallendj/go-utils/util"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Setup drives the whole bootstrap: partner registration per configured
// region, the browser authorization flow, code-for-token exchange, region
// detection, and vehicle discovery. Partial progress is reported, never
// rolled back; registration is idempotent so re-running is safe.
func Setup(ctx context.Context, config *Config) error {
	if config == nil {
		return fmt.Errorf("config is not valid")
	}
	if config.Client.Id == "" {
		return fmt.Errorf("client ID must be set")
	}
	if config.Client.Secret == "" {
		return fmt.Errorf("client secret must be set")
	}

	client := fleet.NewClient(config.TokenHost, config.Client.Id, config.Client.Secret)

	if !config.SkipRegister {
		if err := RegisterPartner(ctx, config); err != nil {
			return err
		}
	}

	fmt.Printf("\nStarting user OAuth authorization code flow...\n")
	token, err := Authorize(ctx, config, client)
	if err != nil {
		return err
	}

	fmt.Printf("\nToken exchange succeeded.\n")
	if config.PrintToken {
		fmt.Printf("access_token: %s\n", token.AccessToken)
	} else {
		fmt.Printf("access_token (masked): %s\n", MaskToken(token.AccessToken))
	}
	if config.DecodeAccessToken {
		decodeAccessToken(token.AccessToken)
	}

	// resolve the true API base unless an audience was forced
	audience := config.Audience
	if audience == "" {
		detected, err := client.DetectRegion(ctx, token.AccessToken)
		if err != nil {
			audience = fleet.DefaultAudience
			fmt.Printf("Region auto-detect failed; using default %s. (%v)\n", audience, err)
		} else {
			audience = detected
			fmt.Printf("Detected Fleet API region: %s\n", audience)
		}
	}

	// output contract consumed by the downstream config; field names are a
	// compatibility surface and must stay stable
	fmt.Printf("\nPut this in config.json:\n")
	fmt.Printf("\"forwardingGateMode\": \"tesla_fleet\",\n")
	fmt.Printf("\"forwardingGateFailOpen\": false,\n")
	fmt.Printf("\"teslaFleetBearerToken\": \"<paste access_token>\",\n")

	if config.FetchVehicleId {
		vehicleId, err := client.FirstVehicle(ctx, audience, token.AccessToken)
		if err != nil {
			fmt.Printf("Could not auto-detect vehicle id: %v\n", err)
			var apiErr *api.Error
			if errors.As(err, &apiErr) && apiErr.Status == 412 {
				fmt.Printf("HTTP 412 means registration is still missing in that region.\n")
			}
			fmt.Printf("\"teslaFleetVehicleDataURL\": \"https://<fleet-host>/api/1/vehicles/<vehicle_id>/vehicle_data\"\n")
		} else {
			fmt.Printf("\"teslaFleetVehicleDataURL\": \"%s/api/1/vehicles/%s/vehicle_data\"\n", audience, vehicleId)
		}
	}

	if token.RefreshToken != "" {
		fmt.Printf("\nrefresh_token returned (store securely if you need token refresh).\n")
	}
	return nil
}

// RegisterPartner runs the partner phase for every configured region:
// credential acquisition, idempotent registration, hosted-key verification.
// Completed registrations are cached so later runs skip the region.
func RegisterPartner(ctx context.Context, config *Config) error {
	domain := ParseDomain(config.Domain)
	if domain == "" {
		return fmt.Errorf("domain must be set unless registration is skipped")
	}
	if root, err := RegistrableDomain(domain); err == nil && root != domain {
		fmt.Printf("Note: %s is not a registrable root domain; the vendor matches against %s.\n", domain, root)
	}

	regions := fleet.NormalizeRegions(config.RegisterRegions)
	if len(regions) == 0 {
		regions = fleet.RegionOrder()
	}

	generated, err := EnsureKeyPair(OpensslKeyPair, config.PrivateKeyFile, config.PublicKeyFile, config.GenerateKeys)
	if err != nil {
		return fmt.Errorf("failed to generate key pair: %v", err)
	}
	if generated {
		fmt.Printf("Generated EC key pair.\nPrivate key: %s\nPublic key: %s\n", config.PrivateKeyFile, config.PublicKeyFile)
	}

	client := fleet.NewClient(config.TokenHost, config.Client.Id, config.Client.Secret)
	keyUrl := fleet.HostedKeyUrl(domain)
	fmt.Printf("\nPublic key must be hosted at:\n%s\n", keyUrl)

	if !config.SkipPublicKeyCheck {
		if err := client.CheckHostedKey(ctx, keyUrl); err != nil {
			fmt.Printf("Public key URL check failed: %v\n", err)
			return fmt.Errorf("upload the public key first, then rerun (or rerun with skip-public-key-check)")
		}
	}

	fmt.Printf("\nRegistering partner account in requested regions...\n")
	for _, region := range regions {
		audience := region.Audience()
		label := strings.ToUpper(string(region))

		if config.CachePath != "" && !config.ForceRegister {
			cached, err := cache.GetRegistration(config.CachePath, string(region), domain)
			if err != nil {
				fmt.Printf("[%s] registration cache unavailable: %v\n", label, err)
			} else if cached != nil {
				fmt.Printf("[%s] registration: %s (cached %s)\n", label, cached.Outcome,
					time.Unix(cached.CreatedAt, 0).Format(time.DateOnly))
				continue
			}
		}

		partnerToken, err := client.BuildPartnerToken(ctx, audience)
		if err != nil {
			return fmt.Errorf("[%s] %v", label, err)
		}

		outcome, err := client.RegisterPartnerAccount(ctx, audience, partnerToken, domain)
		if err != nil {
			fmt.Printf("Hint: ensure domain exactly matches your Tesla app allowed_origins root domain.\n")
			return fmt.Errorf("[%s] %v", label, err)
		}

		verified, diag := client.VerifyPublicKey(ctx, audience, partnerToken, domain)
		status := "verified"
		if !verified {
			status = fmt.Sprintf("verify failed (%s)", diag)
		}
		fmt.Printf("[%s] registration: %s; public key: %s\n", label, outcome, status)

		if config.CachePath != "" {
			if err := cache.InsertRegistration(config.CachePath, string(region), domain, string(outcome)); err != nil {
				fmt.Printf("[%s] failed to cache registration: %v\n", label, err)
			}
		}
	}
	return nil
}

// Authorize runs the loopback capture and exchanges the captured code for a
// user token. The listener is released on every exit path.
func Authorize(ctx context.Context, config *Config, client *fleet.Client) (*fleet.UserToken, error) {
	server, err := NewCallbackServer(config.RedirectUri)
	if err != nil {
		return nil, err
	}

	authorizationUrl := fleet.BuildAuthorizationUrl(
		config.Client.Id,
		config.RedirectUri,
		config.Scope,
		server.State(),
	)

	if err := server.Start(); err != nil {
		return nil, err
	}
	defer server.Close()

	fmt.Printf("\nOpen this URL to authorize:\n%s\n", authorizationUrl)
	if config.OpenBrowser {
		util.OpenUrl(authorizationUrl)
	}

	timeout := time.Duration(config.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	fmt.Printf("Waiting for authorization code redirect @%s%s...\n", server.Addr(), server.Path())

	result, err := server.Wait(ctx, timeout)
	if err != nil {
		return nil, err
	}
	if err := server.Validate(result); err != nil {
		return nil, err
	}

	fmt.Printf("Exchanging authorization code for user token...\n")
	audience := config.Audience
	if audience == "" {
		// placeholder; corrected by region detection after the exchange
		audience = fleet.DefaultAudience
	}
	return client.ExchangeCode(ctx, result.Code, config.RedirectUri, audience)
}

// MaskToken hides the middle of a token for display.
func MaskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func decodeAccessToken(raw string) {
	tok, err := jwt.ParseInsecure([]byte(raw))
	if err != nil {
		fmt.Printf("failed to parse access token: %v\n", err)
		return
	}
	claims, err := json.Marshal(tok)
	if err != nil {
		fmt.Printf("failed to decode access token claims: %v\n", err)
		return
	}
	fmt.Printf("access_token claims: %s\n", claims)
}
