// Package alerts evaluates threshold rules against channel summaries and
// delivers fired alerts to configured webhooks. Rules are simple
// "field op value" expressions over the summary statistics; each (rule,
// channel) pair has an independent cooldown so a noisy channel cannot spam
// a delivery target.
package alerts
