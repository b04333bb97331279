package pagectx

import "sort"

// ConfigService holds each plugin's resolved configuration. It is built
// once per page and hands out copies.
type ConfigService struct {
	configs map[string]map[string]any
}

// NewConfigService copies configs keyed by plugin id
func NewConfigService(configs map[string]map[string]any) *ConfigService {
	s := &ConfigService{configs: make(map[string]map[string]any, len(configs))}
	for id, cfg := range configs {
		s.configs[id] = copyMap(cfg)
	}
	return s
}

// Get returns a copy of the configuration for id
func (s *ConfigService) Get(id string) (map[string]any, bool) {
	if s == nil {
		return nil, false
	}
	cfg, ok := s.configs[id]
	if !ok {
		return nil, false
	}
	return copyMap(cfg), true
}

// IDs lists configured plugin ids in sorted order
func (s *ConfigService) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.configs))
	for id := range s.configs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All returns a copy of every configuration
func (s *ConfigService) All() map[string]map[string]any {
	all := make(map[string]map[string]any)
	if s == nil {
		return all
	}
	for id, cfg := range s.configs {
		all[id] = copyMap(cfg)
	}
	return all
}

func copyMap(m map[string]any) map[string]any {
	c := make(map[string]any, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case map[string]any:
			c[k] = copyMap(val)
		case []any:
			c[k] = append([]any(nil), val...)
		default:
			c[k] = v
		}
	}
	return c
}
