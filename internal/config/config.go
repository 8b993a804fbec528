package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Paths    PathsConfig   `mapstructure:"paths"`
	TTS      TTSConfig     `mapstructure:"tts"`
	Whisper  WhisperConfig `mapstructure:"whisper"`
	LogLevel string        `mapstructure:"log_level"`
}

type PathsConfig struct {
	ModelPath     string `mapstructure:"model_path"`
	TokenizerPath string `mapstructure:"tokenizer_path"`
	CodecPath     string `mapstructure:"codec_path"`
}

type TTSConfig struct {
	Backend           string   `mapstructure:"backend"`
	Language          string   `mapstructure:"language"`
	Languages         []string `mapstructure:"languages"`
	Device            string   `mapstructure:"device"`
	MaxSeqLength      int      `mapstructure:"max_seq_length"`
	Temperature       float64  `mapstructure:"temperature"`
	RepetitionPenalty float64  `mapstructure:"repetition_penalty"`
	MaxLength         int      `mapstructure:"max_length"`
	ChunkSize         int      `mapstructure:"chunk_size"`
	Seed              int64    `mapstructure:"seed"`
	NGPULayers        int      `mapstructure:"n_gpu_layers"`
}

type WhisperConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			ModelPath:     "models/model.safetensors",
			TokenizerPath: "models/tokenizer.model",
			CodecPath:     "models/wavtokenizer.bin",
		},
		TTS: TTSConfig{
			Backend:           BackendFull,
			Language:          "en",
			Languages:         []string{"en", "ja", "ko", "zh"},
			Device:            "",
			MaxSeqLength:      4096,
			Temperature:       0.1,
			RepetitionPenalty: 1.1,
			MaxLength:         4096,
			ChunkSize:         50,
			Seed:              0,
			NGPULayers:        0,
		},
		Whisper: WhisperConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "whisper-1",
		},
		LogLevel: "info",
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("paths-model-path", defaults.Paths.ModelPath, "Path to generation model weights")
	fs.String("paths-tokenizer-path", defaults.Paths.TokenizerPath, "Path to SentencePiece tokenizer model")
	fs.String("paths-codec-path", defaults.Paths.CodecPath, "Path to audio codec weights")
	fs.String("tts-backend", defaults.TTS.Backend, "Generation backend (full|gguf|exl2)")
	fs.String("tts-language", defaults.TTS.Language, "Active synthesis language")
	fs.StringSlice("tts-languages", defaults.TTS.Languages, "Languages supported by the loaded model")
	fs.String("tts-device", defaults.TTS.Device, "Execution device override (cpu|cuda); auto-detected when empty")
	fs.Int("tts-max-seq-length", defaults.TTS.MaxSeqLength, "Maximum context length of the generation model")
	fs.Float64("tts-temperature", defaults.TTS.Temperature, "Sampling temperature (0 selects greedy decoding)")
	fs.Float64("tts-repetition-penalty", defaults.TTS.RepetitionPenalty, "Penalty applied to repeated tokens")
	fs.Int("tts-max-length", defaults.TTS.MaxLength, "Maximum total token count per generation")
	fs.Int("tts-chunk-size", defaults.TTS.ChunkSize, "Tokens per streamed audio chunk")
	fs.Int64("tts-seed", defaults.TTS.Seed, "Sampling seed for reproducible generation")
	fs.Int("tts-n-gpu-layers", defaults.TTS.NGPULayers, "GPU layer count for the gguf backend")
	fs.String("whisper-base-url", defaults.Whisper.BaseURL, "Transcription endpoint for speaker enrollment")
	fs.String("whisper-model", defaults.Whisper.Model, "Transcription model name")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
		// Aliases map the flag spelling onto the dotted config keys. With no
		// flags bound they would shadow config-file values instead.
		registerAliases(v)
	}

	v.SetEnvPrefix("OUTETTS")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("outetts")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	normalized, err := NormalizeBackend(cfg.TTS.Backend)
	if err != nil {
		return Config{}, err
	}
	cfg.TTS.Backend = normalized

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.model_path", c.Paths.ModelPath)
	v.SetDefault("paths.tokenizer_path", c.Paths.TokenizerPath)
	v.SetDefault("paths.codec_path", c.Paths.CodecPath)
	v.SetDefault("tts.backend", c.TTS.Backend)
	v.SetDefault("tts.language", c.TTS.Language)
	v.SetDefault("tts.languages", c.TTS.Languages)
	v.SetDefault("tts.device", c.TTS.Device)
	v.SetDefault("tts.max_seq_length", c.TTS.MaxSeqLength)
	v.SetDefault("tts.temperature", c.TTS.Temperature)
	v.SetDefault("tts.repetition_penalty", c.TTS.RepetitionPenalty)
	v.SetDefault("tts.max_length", c.TTS.MaxLength)
	v.SetDefault("tts.chunk_size", c.TTS.ChunkSize)
	v.SetDefault("tts.seed", c.TTS.Seed)
	v.SetDefault("tts.n_gpu_layers", c.TTS.NGPULayers)
	v.SetDefault("whisper.base_url", c.Whisper.BaseURL)
	v.SetDefault("whisper.model", c.Whisper.Model)
	v.SetDefault("log_level", c.LogLevel)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("paths.model_path", "paths-model-path")
	v.RegisterAlias("paths.tokenizer_path", "paths-tokenizer-path")
	v.RegisterAlias("paths.codec_path", "paths-codec-path")
	v.RegisterAlias("tts.backend", "tts-backend")
	v.RegisterAlias("tts.language", "tts-language")
	v.RegisterAlias("tts.languages", "tts-languages")
	v.RegisterAlias("tts.device", "tts-device")
	v.RegisterAlias("tts.max_seq_length", "tts-max-seq-length")
	v.RegisterAlias("tts.temperature", "tts-temperature")
	v.RegisterAlias("tts.repetition_penalty", "tts-repetition-penalty")
	v.RegisterAlias("tts.max_length", "tts-max-length")
	v.RegisterAlias("tts.chunk_size", "tts-chunk-size")
	v.RegisterAlias("tts.seed", "tts-seed")
	v.RegisterAlias("tts.n_gpu_layers", "tts-n-gpu-layers")
	v.RegisterAlias("whisper.base_url", "whisper-base-url")
	v.RegisterAlias("whisper.model", "whisper-model")
	v.RegisterAlias("log_level", "log-level")
}
