// Package mocktest builds full-length practice exams from a fixed bank
// of concept cards, with no model involvement. Every card yields two
// questions: pick the term for a definition, and pick the definition
// for a term.
package mocktest

import (
	"fmt"

	"github.com/cloudtutor/cloudtutor/internal/model"
)

// ConceptCard is one certification concept the bank derives questions from.
type ConceptCard struct {
	Domain     string
	Term       string
	Definition string
	Rationale  string
}

var cards = []ConceptCard{
	{
		Domain:     "Cloud Concepts",
		Term:       "Shared responsibility model",
		Definition: "A model where Microsoft and the customer split security and compliance responsibilities.",
		Rationale:  "Security ownership changes by service type; responsibilities are shared, not transferred.",
	},
	{
		Domain:     "Cloud Concepts",
		Term:       "Consumption-based model",
		Definition: "A billing model where organizations pay only for resources they use.",
		Rationale:  "Consumption pricing aligns costs with actual usage.",
	},
	{
		Domain:     "Cloud Concepts",
		Term:       "Public cloud",
		Definition: "Cloud resources provided over the internet and shared across multiple tenants.",
		Rationale:  "Public cloud emphasizes elasticity and provider-managed infrastructure.",
	},
	{
		Domain:     "Cloud Concepts",
		Term:       "Private cloud",
		Definition: "Cloud resources dedicated to a single organization.",
		Rationale:  "Private cloud prioritizes dedicated control and isolation.",
	},
	{
		Domain:     "Cloud Concepts",
		Term:       "Hybrid cloud",
		Definition: "An approach that combines on-premises, private cloud, and public cloud resources.",
		Rationale:  "Hybrid strategies mix environments to meet business and compliance needs.",
	},
	{
		Domain:     "Cloud Concepts",
		Term:       "IaaS",
		Definition: "A cloud service model where customers manage operating systems and applications on provider infrastructure.",
		Rationale:  "IaaS provides the most infrastructure control among major cloud service models.",
	},
	{
		Domain:     "Cloud Concepts",
		Term:       "PaaS",
		Definition: "A cloud service model where the provider manages platform components and the customer focuses on applications.",
		Rationale:  "PaaS reduces platform management overhead for developers.",
	},
	{
		Domain:     "Cloud Concepts",
		Term:       "SaaS",
		Definition: "A cloud service model where complete applications are delivered over the internet.",
		Rationale:  "SaaS offloads nearly all infrastructure and platform management to the provider.",
	},
	{
		Domain:     "Cloud Concepts",
		Term:       "Serverless",
		Definition: "A cloud execution model where infrastructure is abstracted and billing is typically event- or execution-based.",
		Rationale:  "Serverless minimizes infrastructure management and scales automatically.",
	},
	{
		Domain:     "Cloud Concepts",
		Term:       "Scalability",
		Definition: "The ability to handle increased workload by adding or removing resources.",
		Rationale:  "Scalability is a key cloud benefit for handling variable demand.",
	},
	{
		Domain:     "Azure Architecture",
		Term:       "Azure region",
		Definition: "A set of datacenters deployed within a specific geographic area.",
		Rationale:  "Regions are foundational units for resource deployment and latency planning.",
	},
	{
		Domain:     "Azure Architecture",
		Term:       "Availability Zone",
		Definition: "A physically separate location inside an Azure region designed for high availability.",
		Rationale:  "Zones increase resiliency against datacenter-level failures.",
	},
	{
		Domain:     "Azure Architecture",
		Term:       "Region pair",
		Definition: "Two Azure regions in the same geography paired for disaster recovery and platform updates.",
		Rationale:  "Region pairs support business continuity and recovery planning.",
	},
	{
		Domain:     "Azure Architecture",
		Term:       "Resource group",
		Definition: "A logical container for managing Azure resources that share lifecycle and governance settings.",
		Rationale:  "Resource groups organize related resources for deployment and management.",
	},
	{
		Domain:     "Azure Architecture",
		Term:       "Subscription",
		Definition: "An agreement and boundary for billing, access control, and resource quotas in Azure.",
		Rationale:  "Subscriptions are billing and governance scopes, not physical infrastructure.",
	},
	{
		Domain:     "Azure Architecture",
		Term:       "Management group",
		Definition: "A scope above subscriptions used to apply governance policies at scale.",
		Rationale:  "Management groups enable hierarchical governance across subscriptions.",
	},
	{
		Domain:     "Azure Architecture",
		Term:       "Azure Virtual Network",
		Definition: "A service that enables private networking between Azure resources and hybrid environments.",
		Rationale:  "Virtual networks provide network isolation and connectivity in Azure.",
	},
	{
		Domain:     "Azure Architecture",
		Term:       "ExpressRoute",
		Definition: "A private connection service between on-premises networks and Microsoft cloud services.",
		Rationale:  "ExpressRoute avoids traversing the public internet for enterprise connectivity.",
	},
	{
		Domain:     "Azure Services",
		Term:       "Azure Virtual Machines",
		Definition: "On-demand Windows or Linux servers in Azure for IaaS workloads.",
		Rationale:  "Virtual Machines provide flexible compute with full OS-level control.",
	},
	{
		Domain:     "Azure Services",
		Term:       "Virtual Machine Scale Sets",
		Definition: "A service for deploying and managing a group of load-balanced VMs that scale automatically.",
		Rationale:  "Scale sets are used for high-scale, resilient VM workloads.",
	},
	{
		Domain:     "Azure Services",
		Term:       "Azure Web Apps",
		Definition: "A managed application hosting service for web apps and APIs.",
		Rationale:  "Web Apps provide managed hosting without VM administration.",
	},
	{
		Domain:     "Azure Services",
		Term:       "Azure Functions",
		Definition: "An event-driven compute service for running small pieces of code without server management.",
		Rationale:  "Functions are used for serverless execution patterns.",
	},
	{
		Domain:     "Azure Services",
		Term:       "Azure DNS",
		Definition: "A hosting service for DNS domains using Azure infrastructure.",
		Rationale:  "Azure DNS provides name resolution with Azure-integrated management.",
	},
	{
		Domain:     "Azure Services",
		Term:       "Azure VPN Gateway",
		Definition: "A service for encrypted connectivity between Azure virtual networks and on-premises sites.",
		Rationale:  "VPN Gateway enables secure hybrid network connectivity.",
	},
	{
		Domain:     "Azure Services",
		Term:       "Azure Storage account",
		Definition: "A namespace that contains data services like blobs, files, queues, and tables.",
		Rationale:  "Storage accounts are the top-level container for Azure Storage services.",
	},
	{
		Domain:     "Azure Services",
		Term:       "Azure Key Vault",
		Definition: "A managed service for securely storing secrets, keys, and certificates.",
		Rationale:  "Key Vault centralizes sensitive secret and key management.",
	},
	{
		Domain:     "Azure Services",
		Term:       "Private endpoint",
		Definition: "A network interface that connects a service privately to a virtual network.",
		Rationale:  "Private endpoints keep service traffic on private IP space.",
	},
	{
		Domain:     "Azure Services",
		Term:       "Public endpoint",
		Definition: "An externally accessible service endpoint reachable over the public internet.",
		Rationale:  "Public endpoints enable internet-facing access when required.",
	},
	{
		Domain:     "Identity",
		Term:       "Microsoft Entra ID",
		Definition: "Microsoft's cloud identity and access management service.",
		Rationale:  "Entra ID handles authentication and identity-based authorization in Azure.",
	},
	{
		Domain:     "Identity",
		Term:       "Multifactor authentication (MFA)",
		Definition: "An authentication method requiring more than one verification factor.",
		Rationale:  "MFA reduces account compromise risk from leaked passwords.",
	},
	{
		Domain:     "Identity",
		Term:       "Conditional Access",
		Definition: "A policy engine that enforces access decisions based on conditions like user, device, and location.",
		Rationale:  "Conditional Access applies adaptive controls to sign-in events.",
	},
	{
		Domain:     "Identity",
		Term:       "Role-Based Access Control (RBAC)",
		Definition: "An authorization model assigning permissions through roles at a defined scope.",
		Rationale:  "RBAC enforces least privilege by scoping permissions to roles and resources.",
	},
	{
		Domain:     "Security",
		Term:       "Zero Trust",
		Definition: "A security strategy that assumes breach and continuously verifies every access request.",
		Rationale:  "Zero Trust reduces implicit trust and enforces explicit verification.",
	},
	{
		Domain:     "Security",
		Term:       "Microsoft Defender for Cloud",
		Definition: "A cloud security posture and workload protection service for Azure and hybrid resources.",
		Rationale:  "Defender for Cloud provides security recommendations and protection capabilities.",
	},
	{
		Domain:     "Security",
		Term:       "Network Security Group (NSG)",
		Definition: "A filtering control that allows or denies network traffic to Azure resources.",
		Rationale:  "NSGs enforce network traffic rules at subnet or NIC level.",
	},
	{
		Domain:     "Security",
		Term:       "Defense in depth",
		Definition: "A layered security approach using multiple controls across identity, network, compute, and data.",
		Rationale:  "Layered controls reduce single-point security failures.",
	},
	{
		Domain:     "Governance",
		Term:       "Azure Policy",
		Definition: "A governance service that defines and enforces standards for resources.",
		Rationale:  "Azure Policy is used to audit or enforce compliance at scale.",
	},
	{
		Domain:     "Governance",
		Term:       "Resource lock",
		Definition: "A setting that prevents accidental deletion or modification of Azure resources.",
		Rationale:  "Locks protect critical resources from unintended changes.",
	},
	{
		Domain:     "Governance",
		Term:       "Tag",
		Definition: "A name-value pair attached to Azure resources for organization and cost reporting.",
		Rationale:  "Tags improve governance, organization, and chargeback visibility.",
	},
	{
		Domain:     "Governance",
		Term:       "Azure Arc",
		Definition: "A service for managing and governing resources across on-premises, multi-cloud, and edge environments.",
		Rationale:  "Azure Arc extends Azure management beyond Azure-hosted resources.",
	},
	{
		Domain:     "Cost Management",
		Term:       "Azure Cost Management and Billing",
		Definition: "A service for analyzing costs, setting budgets, and tracking cloud spend.",
		Rationale:  "Cost Management helps monitor and optimize Azure spending.",
	},
	{
		Domain:     "Cost Management",
		Term:       "Pricing calculator",
		Definition: "A tool used to estimate Azure solution costs before deployment.",
		Rationale:  "Pricing Calculator supports pre-deployment cost forecasting.",
	},
	{
		Domain:     "Cost Management",
		Term:       "Azure Advisor",
		Definition: "A recommendation service that suggests improvements for reliability, security, performance, cost, and operations.",
		Rationale:  "Advisor provides optimization guidance across multiple pillars, including cost.",
	},
	{
		Domain:     "Cost Management",
		Term:       "Reserved capacity",
		Definition: "A purchasing option that reduces cost for predictable workloads by committing for a term.",
		Rationale:  "Reservations can reduce costs when usage is stable and predictable.",
	},
}

var choiceLabels = [4]string{"A", "B", "C", "D"}

// distractor offsets are co-prime with realistic pool sizes, so walking
// them mod pool size yields spread-out, non-adjacent cards.
var distractorOffsets = [7]int{3, 7, 11, 17, 23, 29, 31}

func pickDistractorIndexes(index, poolSize int) ([3]int, error) {
	var picks [3]int
	n := 0
	for _, offset := range distractorOffsets {
		candidate := (index + offset) % poolSize
		if candidate == index || contains(picks[:n], candidate) {
			continue
		}
		picks[n] = candidate
		n++
		if n == 3 {
			return picks, nil
		}
	}
	return picks, fmt.Errorf("unable to build distractors for card %d of %d", index, poolSize)
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// positionedChoices places correct at correctIndex and fills the other
// three slots with distractors in order.
func positionedChoices(correct string, distractors [3]string, correctIndex int) []string {
	slots := make([]string, 4)
	slots[correctIndex] = correct
	cursor := 0
	for i := range slots {
		if i == correctIndex {
			continue
		}
		slots[i] = distractors[cursor]
		cursor++
	}
	return slots
}

func labelChoices(values []string) []string {
	labeled := make([]string, len(values))
	for i, v := range values {
		labeled[i] = fmt.Sprintf("%s) %s", choiceLabels[i], v)
	}
	return labeled
}

func buildQuestionBank(cards []ConceptCard) ([]model.Question, error) {
	bank := make([]model.Question, 0, 2*len(cards))
	poolSize := len(cards)

	for idx, card := range cards {
		indexes, err := pickDistractorIndexes(idx, poolSize)
		if err != nil {
			return nil, err
		}

		var termDistractors, defDistractors [3]string
		for i, di := range indexes {
			termDistractors[i] = cards[di].Term
			defDistractors[i] = cards[di].Definition
		}

		bank = append(bank, model.Question{
			ID:             fmt.Sprintf("drop-%d", idx+1),
			Domain:         card.Domain,
			Stem:           fmt.Sprintf("An example of [Dropdown Menu] is %s", card.Definition),
			Choices:        positionedChoices(card.Term, termDistractors, idx%4),
			AnswerKey:      idx % 4,
			RationaleDraft: card.Rationale,
		})

		bank = append(bank, model.Question{
			ID:             fmt.Sprintf("def-%d", idx+1),
			Domain:         card.Domain,
			Stem:           fmt.Sprintf("What is the primary purpose of %s?", card.Term),
			Choices:        labelChoices(positionedChoices(card.Definition, defDistractors, (idx+1)%4)),
			AnswerKey:      (idx + 1) % 4,
			RationaleDraft: card.Rationale,
		})
	}
	return bank, nil
}

var questionBank = mustBuildBank()

func mustBuildBank() []model.Question {
	bank, err := buildQuestionBank(cards)
	if err != nil {
		panic(err)
	}
	if len(bank) < MaxQuestions {
		panic(fmt.Sprintf("mock question bank size %d is below maximum sample size %d", len(bank), MaxQuestions))
	}
	return bank
}
