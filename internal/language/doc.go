// Package language resolves caption language codes as they appear in video
// metadata (BCP 47 tags such as "en", "pt-BR", "zh-Hans", and site specific
// forms such as "en-orig") into canonical tags and human-readable names.
package language
