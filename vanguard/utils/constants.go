package utils

const (
	SuccessColor = 0x57F287
	ErrorColor   = 0xED4245
	InfoColor    = 0x5865F2
)
