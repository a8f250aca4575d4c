// Package dns is an optional Route53 helper for clusters that expose a
// stable DNS name for their ingress address. Grounded on
// original_source/src/DNSManipulator.cpp: it tags every record it writes
// with a heritage TXT record and refuses to touch a name it does not
// recognize as its own, so the federation can safely share a hosted zone
// with records managed by other tools.
package dns

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
)

// HeritageTag marks TXT records this package wrote, distinguishing them
// from records under the same name managed by something else.
const HeritageTag = "heritage=slate-federation"

const recordTTL = 300

// Manipulator issues Route53 record changes for hosted zones in one AWS
// account. Construct with New; the zero value is not usable.
type Manipulator struct {
	client      *route53.Client
	hostedZones map[string]string // zone name (with trailing dot) -> hosted zone ID
}

// New resolves the default AWS credential chain for region and lists the
// account's hosted zones, so later calls can map a record name to its zone
// without a lookup round trip each time.
func New(ctx context.Context, region string) (*Manipulator, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("dns: loading aws config: %w", err)
	}
	client := route53.NewFromConfig(cfg)

	m := &Manipulator{client: client, hostedZones: make(map[string]string)}
	paginator := route53.NewListHostedZonesPaginator(client, &route53.ListHostedZonesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("dns: listing hosted zones: %w", err)
		}
		for _, zone := range page.HostedZones {
			id := aws.ToString(zone.Id)
			if idx := strings.LastIndex(id, "/"); idx >= 0 {
				id = id[idx+1:]
			}
			m.hostedZones[aws.ToString(zone.Name)] = id
		}
	}
	return m, nil
}

// zoneForName extracts the registrable zone (second-level domain and TLD,
// with a trailing dot) from a fully-qualified record name.
func zoneForName(name string) (string, error) {
	name = strings.TrimSuffix(name, ".")
	last := strings.LastIndex(name, ".")
	if last <= 0 {
		return "", fmt.Errorf("dns: unable to extract zone from %q", name)
	}
	prev := strings.LastIndex(name[:last], ".")
	if prev < 0 {
		return "", fmt.Errorf("dns: unable to extract zone from %q", name)
	}
	return name[prev+1:] + ".", nil
}

func recordType(address string) (types.RRType, error) {
	if address == "" {
		return "", fmt.Errorf("dns: address must not be empty")
	}
	ip := net.ParseIP(address)
	if ip == nil {
		return "", fmt.Errorf("dns: unrecognized IP address: %s", address)
	}
	if ip.To4() != nil {
		return types.RRTypeA, nil
	}
	return types.RRTypeAaaa, nil
}

func (m *Manipulator) zoneID(name string) (string, error) {
	zone, err := zoneForName(name)
	if err != nil {
		return "", err
	}
	id, ok := m.hostedZones[zone]
	if !ok {
		return "", fmt.Errorf("dns: %s is not a hosted zone in this account", zone)
	}
	return id, nil
}

// safeToModify reports whether name may be written: true if no base record
// of rrType currently exists, or if one exists but carries our heritage TXT
// tag (we wrote it previously).
func (m *Manipulator) safeToModify(ctx context.Context, zoneID, name string, rrType types.RRType) (bool, error) {
	base, err := m.testDNSAnswer(ctx, zoneID, name, rrType)
	if err != nil {
		return false, err
	}
	txt, err := m.testDNSAnswer(ctx, zoneID, name, types.RRTypeTxt)
	if err != nil {
		return false, err
	}
	heritage := false
	for _, rec := range txt {
		if strings.Contains(rec, HeritageTag) {
			heritage = true
		}
	}
	return len(base) == 0 || heritage, nil
}

func (m *Manipulator) testDNSAnswer(ctx context.Context, zoneID, name string, rrType types.RRType) ([]string, error) {
	out, err := m.client.TestDNSAnswer(ctx, &route53.TestDNSAnswerInput{
		HostedZoneId: aws.String(zoneID),
		RecordName:   aws.String(name),
		RecordType:   rrType,
	})
	if err != nil {
		return nil, fmt.Errorf("dns: testing %s record for %s: %w", rrType, name, err)
	}
	return out.RecordData, nil
}

// SetRecord upserts an A or AAAA record (chosen by parsing address) along
// with its heritage TXT tag, refusing to overwrite a record it did not
// create.
func (m *Manipulator) SetRecord(ctx context.Context, name, address string) error {
	rrType, err := recordType(address)
	if err != nil {
		return err
	}
	zoneID, err := m.zoneID(name)
	if err != nil {
		return err
	}
	ok, err := m.safeToModify(ctx, zoneID, name, rrType)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("dns: refusing to modify %s: record exists and is not ours", name)
	}
	return m.changeRecords(ctx, zoneID, types.ChangeActionUpsert, name, address, rrType)
}

// RemoveRecord deletes a previously-set A/AAAA + heritage TXT pair,
// refusing to touch a record it did not create.
func (m *Manipulator) RemoveRecord(ctx context.Context, name, address string) error {
	rrType, err := recordType(address)
	if err != nil {
		return err
	}
	zoneID, err := m.zoneID(name)
	if err != nil {
		return err
	}
	ok, err := m.safeToModify(ctx, zoneID, name, rrType)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("dns: refusing to modify %s: record exists and is not ours", name)
	}
	return m.changeRecords(ctx, zoneID, types.ChangeActionDelete, name, address, rrType)
}

func (m *Manipulator) changeRecords(ctx context.Context, zoneID string, action types.ChangeAction, name, address string, rrType types.RRType) error {
	mainSet := types.ResourceRecordSet{
		Name:            aws.String(name),
		Type:            rrType,
		TTL:             aws.Int64(recordTTL),
		ResourceRecords: []types.ResourceRecord{{Value: aws.String(address)}},
	}
	txtSet := types.ResourceRecordSet{
		Name:            aws.String(name),
		Type:            types.RRTypeTxt,
		TTL:             aws.Int64(recordTTL),
		ResourceRecords: []types.ResourceRecord{{Value: aws.String(`"` + HeritageTag + `"`)}},
	}
	_, err := m.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: []types.Change{
				{Action: action, ResourceRecordSet: &mainSet},
				{Action: action, ResourceRecordSet: &txtSet},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("dns: changing records for %s: %w", name, err)
	}
	return nil
}
