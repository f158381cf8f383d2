package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"hsr-monitor/internal/config"
)

// secretStore is the part of config.KeyringSource the secret command needs.
type secretStore interface {
	Set(key, value string) error
}

var newSecretStore = func() secretStore { return config.NewKeyringSource() }

func secretCommand(args []string, stdin io.Reader) error {
	if len(args) == 0 || args[0] != "set" {
		return errors.New("usage: hsr-monitor secret set --key NAME [--value VALUE]")
	}

	fs := flag.NewFlagSet("secret set", flag.ExitOnError)
	key := fs.String("key", "", "Credential name: FTC_API_KEY, BREVO_API_KEY, RESEND_API_KEY, SMTP_PASSWORD or SLACK_WEBHOOK_URL")
	value := fs.String("value", "", "Credential value (read from stdin when empty)")
	fs.Parse(args[1:])

	if !config.IsSecretKey(*key) {
		return fmt.Errorf("--key %q is not a known credential", *key)
	}

	secret := *value
	if secret == "" {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading secret from stdin: %w", err)
		}
		secret = strings.TrimSpace(line)
	}
	if secret == "" {
		return errors.New("secret value is empty")
	}

	if err := newSecretStore().Set(*key, secret); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Stored %s in the system keyring.\n", strings.ToUpper(strings.TrimSpace(*key)))
	return nil
}
