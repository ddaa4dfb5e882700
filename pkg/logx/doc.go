// Package logx configures chanpost's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Optional Telegram sink (min-level + rate limiting)
//
// Loggers handed out by the Service stay live across Apply() calls, so
// components can be constructed once and survive config hot reloads.
package logx
