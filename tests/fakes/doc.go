// Package fakes provides in-memory stand-ins for the vendor SDK clients the
// providers in internal/providers talk to.
//
// The cloud fakes keep real version history and answer the way the service
// does (staging labels, newest-first listings, not-found error shapes), so the
// shared provider contract can run against the adapters unmodified. They are
// written by hand rather than generated to keep that behavior explicit.
//
// Usage:
//
//	client := fakes.NewFakeSecretsManagerClient()
//	p, _ := providers.NewAWSSecretsManagerProvider("aws", nil,
//	    providers.WithSecretsManagerClient(client))
//	client.AddStringSecret("db-password", "hunter2")
package fakes
