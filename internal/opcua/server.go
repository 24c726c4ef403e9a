package opcua

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/awcullen/opcua/server"
	"github.com/awcullen/opcua/ua"
	"github.com/rs/zerolog/log"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
)

const (
	applicationURI  = "urn:truck-telemetry-simulator:replay"
	applicationName = "TruckTelemetryReplay"
)

// NamespaceNodes holds nodes for a specific namespace
type NamespaceNodes struct {
	Namespace  uint16
	FolderName string
	FolderDesc string
	NodeDefs   []core.NodeDefinition // kept for deferred registration
	VarNodes   map[string]*server.VariableNode
	Values     map[string]interface{}
}

// Server wraps the OPC UA server and keeps the last value of every node.
// Values are stored even when the server could not be started, so the
// replay keeps working in value storage mode.
type Server struct {
	srv    *server.Server
	port   int
	pkiDir string
	mu     sync.RWMutex

	namespaces map[uint16]*NamespaceNodes
}

// NewServer creates a new OPC UA server. Certificates are kept under pkiDir.
func NewServer(port int, pkiDir string) *Server {
	return &Server{
		port:       port,
		pkiDir:     pkiDir,
		namespaces: make(map[uint16]*NamespaceNodes),
	}
}

// Running reports whether the OPC UA endpoint is listening
func (s *Server) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.srv != nil
}

func (s *Server) certPaths() (string, string) {
	return filepath.Join(s.pkiDir, "server.crt"), filepath.Join(s.pkiDir, "server.key")
}

// ensurePKI creates the PKI directory and a self-signed certificate if missing
func (s *Server) ensurePKI() error {
	certFile, keyFile := s.certPaths()
	if _, err := os.Stat(certFile); err == nil {
		log.Info().Str("certFile", certFile).Msg("Using existing PKI certificates")
		return nil
	}

	log.Info().Msg("Generating self-signed certificates for OPC UA server")

	if err := os.MkdirAll(s.pkiDir, 0o755); err != nil {
		return fmt.Errorf("failed to create PKI directory: %w", err)
	}
	return createSelfSignedCert(applicationName, certFile, keyFile)
}

// createSelfSignedCert generates a self-signed certificate for the OPC UA server
func createSelfSignedCert(appName, certPath, keyPath string) error {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return fmt.Errorf("failed to generate private key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("failed to generate serial number: %w", err)
	}

	appURI, err := url.Parse(applicationURI)
	if err != nil {
		return fmt.Errorf("invalid application uri: %w", err)
	}

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName:   appName,
			Organization: []string{"Truck Telemetry Simulator"},
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost", appName, "truck-telemetry-simulator"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("0.0.0.0")},
		URIs:                  []*url.URL{appURI},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}

	if err := writePEM(certPath, "CERTIFICATE", certDER); err != nil {
		return err
	}
	if err := writePEM(keyPath, "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(privateKey)); err != nil {
		return err
	}

	log.Info().
		Str("certPath", certPath).
		Str("keyPath", keyPath).
		Msg("Self-signed certificates generated successfully")
	return nil
}

func writePEM(path, blockType string, der []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}

// Start starts the OPC UA server. A server that cannot be created is not an
// error: values keep being stored and served over HTTP.
func (s *Server) Start(ctx context.Context) error {
	endpoint := fmt.Sprintf("opc.tcp://0.0.0.0:%d", s.port)

	log.Info().
		Int("port", s.port).
		Str("endpoint", endpoint).
		Msg("Starting OPC UA server")

	if err := s.ensurePKI(); err != nil {
		log.Warn().Err(err).Msg("Failed to create PKI - OPC UA server disabled")
		return nil
	}
	certFile, keyFile := s.certPaths()

	var srv *server.Server
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Warn().
					Interface("panic", r).
					Msg("OPC UA server creation panicked - running in value storage mode only")
			}
		}()

		var err error
		srv, err = server.New(
			ua.ApplicationDescription{
				ApplicationURI:  applicationURI,
				ProductURI:      "urn:truck-telemetry-simulator",
				ApplicationName: ua.LocalizedText{Text: "Truck Telemetry Replay", Locale: "en"},
				ApplicationType: ua.ApplicationTypeServer,
			},
			certFile,
			keyFile,
			endpoint,
			server.WithAnonymousIdentity(true),
			server.WithSecurityPolicyNone(true),
			server.WithInsecureSkipVerify(),
		)
		if err != nil {
			log.Warn().
				Err(err).
				Msg("OPC UA server creation failed - running in value storage mode only")
			srv = nil
		}
	}()

	if srv == nil {
		return nil
	}

	s.mu.Lock()
	s.srv = srv
	n := s.registerPendingNamespaces()
	s.mu.Unlock()
	log.Info().Int("count", n).Msg("OPC UA nodes registered in address space")

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("OPC UA server panic")
			}
		}()
		if err := srv.ListenAndServe(); err != nil {
			log.Error().Err(err).Msg("OPC UA server error")
		}
	}()

	log.Info().Msg("OPC UA server started successfully")
	return nil
}

// Stop stops the OPC UA server
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.mu.Unlock()
	if srv != nil {
		return srv.Close()
	}
	return nil
}

// RegisterNamespace declares a folder with variable nodes. Before Start the
// definitions are kept and added to the address space once the server runs.
func (s *Server) RegisterNamespace(nsIndex uint16, folderName, folderDesc string, nodes []core.NodeDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns := &NamespaceNodes{
		Namespace:  nsIndex,
		FolderName: folderName,
		FolderDesc: folderDesc,
		NodeDefs:   nodes,
		VarNodes:   make(map[string]*server.VariableNode),
		Values:     make(map[string]interface{}, len(nodes)),
	}
	for _, def := range nodes {
		ns.Values[def.Name] = def.InitialValue
	}
	s.namespaces[nsIndex] = ns

	if s.srv != nil {
		s.addToAddressSpace(ns)
	}
}

// UpdateNamespaceValues updates values of a namespace. Unknown names are ignored.
func (s *Server) UpdateNamespaceValues(nsIndex uint16, values map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[nsIndex]
	if !ok {
		return
	}

	now := time.Now().UTC()
	for name, value := range values {
		if _, known := ns.Values[name]; !known {
			continue
		}
		ns.Values[name] = value
		if varNode, ok := ns.VarNodes[name]; ok {
			varNode.SetValue(ua.NewDataValue(value, 0, now, 0, now, 0))
		}
	}
}

// GetNamespaceValue returns the last value of a node
func (s *Server) GetNamespaceValue(nsIndex uint16, name string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns, ok := s.namespaces[nsIndex]
	if !ok {
		return nil, false
	}
	value, ok := ns.Values[name]
	return value, ok
}

// NamespaceValues returns a copy of all values of a namespace
func (s *Server) NamespaceValues(nsIndex uint16) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns, ok := s.namespaces[nsIndex]
	if !ok {
		return nil
	}
	out := make(map[string]interface{}, len(ns.Values))
	for k, v := range ns.Values {
		out[k] = v
	}
	return out
}

// registerPendingNamespaces adds every declared namespace; callers hold mu
func (s *Server) registerPendingNamespaces() int {
	idx := make([]int, 0, len(s.namespaces))
	for ns := range s.namespaces {
		idx = append(idx, int(ns))
	}
	sort.Ints(idx)

	count := 0
	for _, i := range idx {
		count += s.addToAddressSpace(s.namespaces[uint16(i)])
	}
	return count
}

// addToAddressSpace creates the folder and variable nodes; callers hold mu
func (s *Server) addToAddressSpace(ns *NamespaceNodes) int {
	nm := s.srv.NamespaceManager()
	nsIndex := ns.Namespace

	folder := server.NewObjectNode(
		s.srv,
		ua.NodeIDString{NamespaceIndex: nsIndex, ID: ns.FolderName},
		ua.QualifiedName{NamespaceIndex: nsIndex, Name: ns.FolderName},
		ua.LocalizedText{Text: ns.FolderName},
		ua.LocalizedText{Text: ns.FolderDesc},
		nil,
		[]ua.Reference{
			{
				ReferenceTypeID: ua.ReferenceTypeIDOrganizes,
				IsInverse:       true,
				TargetID:        ua.ExpandedNodeID{NodeID: ua.ObjectIDObjectsFolder},
			},
		},
		0,
	)
	nm.AddNode(folder)

	now := time.Now().UTC()
	for _, def := range ns.NodeDefs {
		varNode := server.NewVariableNode(
			s.srv,
			ua.NodeIDString{NamespaceIndex: nsIndex, ID: ns.FolderName + "." + def.Name},
			ua.QualifiedName{NamespaceIndex: nsIndex, Name: def.Name},
			ua.LocalizedText{Text: def.DisplayName},
			ua.LocalizedText{Text: def.Description},
			nil,
			[]ua.Reference{
				{
					ReferenceTypeID: ua.ReferenceTypeIDHasComponent,
					IsInverse:       true,
					TargetID:        ua.ExpandedNodeID{NodeID: ua.NodeIDString{NamespaceIndex: nsIndex, ID: ns.FolderName}},
				},
			},
			ua.NewDataValue(ns.Values[def.Name], 0, now, 0, now, 0),
			dataTypeID(def.DataType),
			ua.ValueRankScalar,
			[]uint32{},
			ua.AccessLevelsCurrentRead,
			250.0,
			false,
			nil,
		)
		nm.AddNode(varNode)
		ns.VarNodes[def.Name] = varNode
	}

	log.Info().
		Uint16("namespace", nsIndex).
		Str("folder", ns.FolderName).
		Int("nodes", len(ns.NodeDefs)).
		Msg("Registered OPC UA namespace")
	return len(ns.NodeDefs)
}

func dataTypeID(dt core.DataType) ua.NodeID {
	switch dt {
	case core.DataTypeFloat:
		return ua.DataTypeIDFloat
	case core.DataTypeInt32:
		return ua.DataTypeIDInt32
	case core.DataTypeInt64:
		return ua.DataTypeIDInt64
	case core.DataTypeString:
		return ua.DataTypeIDString
	case core.DataTypeBool:
		return ua.DataTypeIDBoolean
	case core.DataTypeDateTime:
		return ua.DataTypeIDDateTime
	default:
		return ua.DataTypeIDDouble
	}
}
