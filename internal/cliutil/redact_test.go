package cliutil

import (
	"strings"
	"testing"
)

func TestRedactSecrets(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		secrets []string
	}{
		{
			name: "template variable",
			in:   "run ${DATABASE_URL}",
			want: "run ${[redacted]}",
		},
		{
			name:    "secret key assignment",
			in:      "env POSTGRES_PASSWORD=hunter2 psql",
			secrets: []string{"hunter2"},
		},
		{
			name:    "quoted secret",
			in:      `API_KEY: "abc123"`,
			secrets: []string{"abc123"},
		},
		{
			name:    "password flag equals",
			in:      "mysql --password=hunter2 -h db",
			secrets: []string{"hunter2"},
		},
		{
			name:    "token flag space",
			in:      "deploy --token abc123 --env prod",
			secrets: []string{"abc123"},
		},
		{
			name:    "api key flag",
			in:      "curl --api-key s3cr3t https://example.com",
			secrets: []string{"s3cr3t"},
		},
		{
			name: "plain command untouched",
			in:   "vim /home/dev/notes.txt",
			want: "vim /home/dev/notes.txt",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RedactSecrets(tc.in)
			if tc.want != "" || len(tc.secrets) == 0 {
				if got != tc.want {
					t.Fatalf("got %q, want %q", got, tc.want)
				}
				return
			}
			for _, secret := range tc.secrets {
				if strings.Contains(got, secret) {
					t.Fatalf("secret %q survived redaction: %q", secret, got)
				}
			}
			if !strings.Contains(got, redactedPlaceholder) {
				t.Fatalf("expected placeholder in %q", got)
			}
		})
	}
}
