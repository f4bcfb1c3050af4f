// Package fabric implements the fabric builder from spec §3/§6: it takes
// one region.Region and a declared set of per-service port requirements,
// carves disjoint sub-ranges out of the region for each port, and hands
// back both halves of the transport — the scheduler-side
// endpoint.Endpoint used to submit commands and drain replies, and the
// worker-side raw rings/mailbox/pools the service engines in the
// services package poll directly — plus the serialized
// layout.FabricLayout descriptor spec §6 says a worker bootstrap
// consumes to reconstruct its view of the region without out-of-band
// coordination.
package fabric

import (
	"fmt"

	"code.hybscloud.com/fabric/codec"
	"code.hybscloud.com/fabric/endpoint"
	"code.hybscloud.com/fabric/layout"
	"code.hybscloud.com/fabric/mailbox"
	"code.hybscloud.com/fabric/msgring"
	"code.hybscloud.com/fabric/region"
	"code.hybscloud.com/fabric/slotpool"
	"code.hybscloud.com/fabric/world"
)

// EndpointSpec declares one service's port requirements. A zero capacity
// for CmdBestEffortCapacity/MailboxPayload/RepliesCapacity means that
// port is omitted — not every service needs every port class (e.g. Gpu
// and Audio have no Coalesce mailbox in this session's wiring).
type EndpointSpec struct {
	Target world.ServiceTarget

	CmdLosslessCapacity   int
	CmdBestEffortCapacity int
	MailboxPayload        int
	RepliesCapacity       int

	Pools []slotpool.Config
}

// Ports is the worker-island half of one built endpoint: the raw
// primitives a services.*Engine polls directly, mirroring exactly the
// ports its counterpart endpoint.Endpoint was built from.
type Ports struct {
	Target world.ServiceTarget

	CmdLossless   *msgring.Ring
	CmdBestEffort *msgring.Ring
	CmdMailbox    *mailbox.Mailbox
	Replies       *msgring.Ring
	Pools         []*slotpool.Pool
}

// Fabric is the fully built transport: one endpoint.Endpoint and one
// Ports per declared service, both views over the same region bytes.
type Fabric struct {
	region    *region.Region
	endpoints map[world.ServiceTarget]*endpoint.Endpoint
	ports     map[world.ServiceTarget]*Ports
	layout    layout.FabricLayout
}

// Build carves reg into the ports specs describes, in order, and
// assembles both the scheduler-side endpoints and worker-side ports.
// Build is single-threaded, fabric-construction-time code — per spec
// §3, the region is exclusively owned by the builder until the layout
// is published.
func Build(reg *region.Region, specs []EndpointSpec) (*Fabric, error) {
	f := &Fabric{
		region:    reg,
		endpoints: make(map[world.ServiceTarget]*endpoint.Endpoint, len(specs)),
		ports:     make(map[world.ServiceTarget]*Ports, len(specs)),
	}

	for _, spec := range specs {
		epLayout := layout.EndpointLayout{}
		builder := endpoint.NewBuilder()
		p := &Ports{Target: spec.Target}

		if spec.CmdLosslessCapacity > 0 {
			r, portLayout, err := f.allocRing(spec.CmdLosslessCapacity, codec.RoleCmdLossless)
			if err != nil {
				return nil, fmt.Errorf("fabric: %s CmdLossless: %w", spec.Target, err)
			}
			builder.WithCmdLossless(r)
			p.CmdLossless = r
			epLayout.Ports = append(epLayout.Ports, portLayout)
		}

		if spec.CmdBestEffortCapacity > 0 {
			r, portLayout, err := f.allocRing(spec.CmdBestEffortCapacity, codec.RoleCmdBestEffort)
			if err != nil {
				return nil, fmt.Errorf("fabric: %s CmdBestEffort: %w", spec.Target, err)
			}
			builder.WithCmdBestEffort(r)
			p.CmdBestEffort = r
			epLayout.Ports = append(epLayout.Ports, portLayout)
		}

		if spec.MailboxPayload > 0 {
			m, portLayout, err := f.allocMailbox(spec.MailboxPayload)
			if err != nil {
				return nil, fmt.Errorf("fabric: %s CmdMailbox: %w", spec.Target, err)
			}
			builder.WithCmdMailbox(m)
			p.CmdMailbox = m
			epLayout.Ports = append(epLayout.Ports, portLayout)
		}

		if spec.RepliesCapacity > 0 {
			r, portLayout, err := f.allocRing(spec.RepliesCapacity, codec.RoleReplies)
			if err != nil {
				return nil, fmt.Errorf("fabric: %s Replies: %w", spec.Target, err)
			}
			builder.WithReplies(r)
			p.Replies = r
			epLayout.Ports = append(epLayout.Ports, portLayout)
		}

		for k, cfg := range spec.Pools {
			pool, portLayout, err := f.allocPool(cfg, codec.RoleSlotPool+codec.PortRole(k))
			if err != nil {
				return nil, fmt.Errorf("fabric: %s SlotPool(%d): %w", spec.Target, k, err)
			}
			builder.WithPool(pool)
			p.Pools = append(p.Pools, pool)
			epLayout.Ports = append(epLayout.Ports, portLayout)
		}

		f.endpoints[spec.Target] = builder.Build()
		f.ports[spec.Target] = p
		f.layout.Endpoints = append(f.layout.Endpoints, epLayout)
	}

	return f, nil
}

func (f *Fabric) allocRing(capacity int, role codec.PortRole) (*msgring.Ring, layout.PortLayout, error) {
	base, err := f.region.Alloc(capacity)
	if err != nil {
		return nil, layout.PortLayout{}, err
	}
	r, err := msgring.New(f.region.Bytes(base, uint32(capacity)))
	if err != nil {
		return nil, layout.PortLayout{}, err
	}
	return r, layout.PortLayout{
		Role: layout.KindMsgRing, PortRole: role, Base: base, Capacity: uint32(capacity),
	}, nil
}

// allocMailbox reserves payloadCap bytes of region space for the layout
// descriptor's accounting even though mailbox.Mailbox allocates its own
// backing array — a mailbox's seqlock protocol isn't expressed over a
// raw byte slice the way msgring.Ring/slotpool.Pool are, so there is no
// region-backed constructor to call here. The reservation keeps the
// published layout's offsets consistent with actual region consumption.
func (f *Fabric) allocMailbox(payloadCap int) (*mailbox.Mailbox, layout.PortLayout, error) {
	base, err := f.region.Alloc(payloadCap)
	if err != nil {
		return nil, layout.PortLayout{}, err
	}
	m := mailbox.New(payloadCap)
	return m, layout.PortLayout{
		Role: layout.KindMailbox, PortRole: codec.RoleCmdMailbox, Base: base, PayloadSize: uint32(payloadCap),
	}, nil
}

func (f *Fabric) allocPool(cfg slotpool.Config, role codec.PortRole) (*slotpool.Pool, layout.PortLayout, error) {
	size := cfg.SlotSize * cfg.Count
	base, err := f.region.Alloc(size)
	if err != nil {
		return nil, layout.PortLayout{}, err
	}
	pool, err := slotpool.New(f.region.Bytes(base, uint32(size)), cfg)
	if err != nil {
		return nil, layout.PortLayout{}, err
	}
	return pool, layout.PortLayout{
		Role: layout.KindSlotPool, PortRole: role, Base: base,
		SlotSize: uint32(cfg.SlotSize), SlotAlign: uint32(cfg.SlotAlign), Count: uint32(cfg.Count),
	}, nil
}

// Endpoints returns every built scheduler-side endpoint, keyed by
// service target — ready to pass to scheduler.New.
func (f *Fabric) Endpoints() map[world.ServiceTarget]*endpoint.Endpoint {
	return f.endpoints
}

// Ports returns the worker-side raw ports for target, or nil if target
// was not in the EndpointSpecs passed to Build.
func (f *Fabric) Ports(target world.ServiceTarget) *Ports {
	return f.ports[target]
}

// Layout returns the fabric's serialized layout descriptor, the same one
// MarshalBinary/UnmarshalBinary round-trips per spec §6.
func (f *Fabric) Layout() layout.FabricLayout {
	return f.layout
}

// Close releases the underlying region's OS-level resources, if any.
func (f *Fabric) Close() error {
	return f.region.Close()
}
