// Package pagectx holds the shared page context handed to mounted plugins.
//
// A Context carries a read-only platform snapshot, the content snapshot for
// article routes, each plugin's resolved configuration, and a publish/subscribe
// Bus. The loader owns the single Writer that updates route and content;
// plugins only read, emit, and publish capabilities.
package pagectx
