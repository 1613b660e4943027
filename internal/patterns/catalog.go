package patterns

import (
	c "github.com/joseph-ayodele/contracts-extractor/constants"
)

// Version identifies the built-in catalog. Bump it whenever a matcher,
// base score or field definition changes.
const Version = "contracts-2024.4"

// Shared sub-patterns. Values never span lines.
const (
	datePat = `((?:[A-Za-z]{3,9}\.?[ \t]+\d{1,2}(?:st|nd|rd|th)?,?[ \t]+\d{4})` +
		`|(?:\d{1,2}(?:st|nd|rd|th)?[ \t]+[A-Za-z]{3,9},?[ \t]+\d{4})` +
		`|(?:\d{4}-\d{2}-\d{2})` +
		`|(?:\d{1,2}[/-]\d{1,2}[/-]\d{2,4}))`
	moneyPat       = `(?:[$€£₹¥][ \t]*|(?:USD|EUR|GBP|INR)[ \t]*)?(\d[\d,]*(?:\.\d{1,2})?)`
	strictMoneyPat = `(?:[$€£₹¥][ \t]*|(?:USD|EUR|GBP|INR)[ \t]+)(\d[\d,]*(?:\.\d{1,2})?)`
	durationPat    = `(\d{1,3}[ \t-]*(?:day|week|month|year)s?)`
	sep            = `[ \t]*[:\-]?[ \t]*`
	namePat        = `([A-Za-z][A-Za-z&,.'\- ]+?)`
)

func catalog() []FieldDefinition {
	return []FieldDefinition{
		// parties
		{
			Name: "party_1_name", Category: c.CategoryParties, Group: c.GroupParties, Type: TypeString,
			Required: true, Severity: c.SeverityHigh,
			Description: "Legal name of the first contracting party (client or customer).",
			Competitors: []string{"party_2_name"},
			Matchers: []Matcher{
				Label(0.85, CleanName, "Client", "Customer", "Buyer", "Purchaser", "Party A"),
				Regex(`(?im)\b(?:by[ \t]+and[ \t]+)?between[ \t]+`+namePat+`(?:[ \t]+\(|,|[ \t]+a[ \t]+|[ \t]+and\b)`, 0.7, CleanName),
			},
		},
		{
			Name: "party_2_name", Category: c.CategoryParties, Group: c.GroupParties, Type: TypeString,
			Required: true, Severity: c.SeverityHigh,
			Description: "Legal name of the second contracting party (vendor or provider).",
			Competitors: []string{"party_1_name"},
			Matchers: []Matcher{
				Label(0.85, CleanName, "Vendor", "Supplier", "Seller", "Provider", "Service Provider", "Contractor", "Party B"),
				Regex(`(?im)\bbetween[ \t]+[^\n]+?[ \t]+and[ \t]+`+namePat+`(?:[ \t]+\(|,|\.|[ \t]*$)`, 0.65, CleanName),
			},
		},
		{
			Name: "signatory_1_name", Category: c.CategoryParties, Group: c.GroupContacts, Type: TypeString,
			Severity:    c.SeverityLow,
			Description: "Name of the first person signing.",
			Competitors: []string{"signatory_2_name"},
			Matchers: []Matcher{
				Regex(`(?im)^[ \t]*name[ \t]*:[ \t]*([A-Za-z][A-Za-z .'\-]+?)[ \t]*$`, 0.7, CleanName),
				Label(0.7, CleanName, "Signed by", "Authorized Representative", "Authorised Representative"),
			},
		},
		{
			Name: "signatory_1_title", Category: c.CategoryParties, Type: TypeString,
			Severity:    c.SeverityLow,
			Description: "Job title of the first signatory.",
			Competitors: []string{"signatory_2_title"},
			Matchers: []Matcher{
				Regex(`(?im)^[ \t]*title[ \t]*:[ \t]*([A-Za-z][A-Za-z .,&'\-]+?)[ \t]*$`, 0.65, CleanName),
			},
		},
		{
			Name: "signatory_2_name", Category: c.CategoryParties, Group: c.GroupContacts, Type: TypeString,
			Severity:    c.SeverityLow,
			Description: "Name of the second person signing.",
			Competitors: []string{"signatory_1_name"},
			Matchers: []Matcher{
				Regex(`(?im)^[ \t]*name[ \t]*:[^\n]*\n(?:[^\n]*\n){0,8}?[ \t]*name[ \t]*:[ \t]*([A-Za-z][A-Za-z .'\-]+?)[ \t]*$`, 0.7, CleanName),
			},
		},
		{
			Name: "signatory_2_title", Category: c.CategoryParties, Type: TypeString,
			Severity:    c.SeverityLow,
			Description: "Job title of the second signatory.",
			Competitors: []string{"signatory_1_title"},
			Matchers: []Matcher{
				Regex(`(?im)^[ \t]*title[ \t]*:[^\n]*\n(?:[^\n]*\n){0,8}?[ \t]*title[ \t]*:[ \t]*([A-Za-z][A-Za-z .,&'\-]+?)[ \t]*$`, 0.65, CleanName),
			},
		},
		{
			Name: "primary_contact_name", Category: c.CategoryParties, Group: c.GroupContacts, Type: TypeString,
			Severity:    c.SeverityLow,
			Description: "Main point of contact for the agreement.",
			Matchers: []Matcher{
				Regex(`(?im)\bprimary[ \t]+contact[ \t]*:[ \t]*([A-Za-z][A-Za-z .'\-]+?)(?:[ \t]*\(|[ \t]*[,;|]|[ \t]*$)`, 0.8, CleanName),
				Regex(`(?im)^[ \t]*contact(?:[ \t]+person)?[ \t]*:[ \t]*([A-Za-z][A-Za-z .'\-]+?)(?:[ \t]*\(|[ \t]*[,;|]|[ \t]*$)`, 0.7, CleanName),
			},
		},
		{
			Name: "primary_contact_email", Category: c.CategoryParties, Group: c.GroupContacts, Type: TypeString,
			Required: true, Severity: c.SeverityMedium,
			Description: "Email address of the primary contact.",
			Matchers: []Matcher{
				Regex(`(?i)\be-?mail[ \t]*:[ \t]*([A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,})`, 0.85, Lower),
				Regex(`(?i)\b([A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,})\b`, 0.8, Lower),
			},
		},
		{
			Name: "primary_contact_phone", Category: c.CategoryParties, Group: c.GroupContacts, Type: TypeString,
			Severity:    c.SeverityLow,
			Description: "Phone number of the primary contact.",
			Matchers: []Matcher{
				Regex(`(?i)\b(?:phone|tel(?:ephone)?|mobile)[ \t]*[:.]?[ \t]*(\+?[\d(][\d()\-. ]{5,18}\d)`, 0.8, CleanText),
			},
		},
		{
			Name: "customer_address", Category: c.CategoryParties, Group: c.GroupContacts, Type: TypeString,
			Severity:    c.SeverityLow,
			Description: "Postal address of the customer.",
			Matchers: []Matcher{
				Regex(`(?im)\b(?:customer[ \t]+|billing[ \t]+)?address[ \t]*:[ \t]*([^,\n]+,[ \t]*[^,\n]+,[ \t]*[^\n]+?)[ \t]*$`, 0.8, CleanText),
				Regex(`(\d+[ \t]+[A-Za-z .]+,[ \t]*[A-Za-z .]+,[ \t]*[A-Z]{2}[ \t]+\d{5}(?:-\d{4})?)`, 0.65, CleanText),
			},
		},

		// financial
		{
			Name: "contract_value", Category: c.CategoryFinancial, Group: c.GroupFinancial, Type: TypeNumber,
			Required: true, Severity: c.SeverityHigh,
			Description: "Total or annual value of the contract, in the contract currency.",
			Competitors: []string{"total_amount"},
			Matchers: []Matcher{
				Regex(`(?i)\btotal[ \t]+(?:contract[ \t]+)?(?:value|price)`+sep+moneyPat, 0.9, ParseTotal),
				Regex(`(?i)(?:\bannual[ \t]+contract[ \t]+value|\btotal[ \t]+annual[ \t]+value|\bacv\b)`+sep+moneyPat, 0.9, ParseTotal),
				Regex(`(?i)\b(?:contract|total)[ \t]+(?:sum|consideration|amount)`+sep+moneyPat, 0.8, ParseTotal),
				Regex(`(?i)\b(?:total[ \t]+)?monthly[ \t]+(?:fee|payment|amount|charge)s?`+sep+moneyPat, 0.75, AnnualizeMonthly),
			},
		},
		{
			Name: "currency", Category: c.CategoryFinancial, Group: c.GroupFinancial, Type: TypeString,
			Required: true, Severity: c.SeverityMedium,
			Description: "ISO 4217 currency code of the amounts.",
			Matchers: []Matcher{
				Label(0.9, NormalizeCurrency, "Currency"),
				Regex(`\b(USD|EUR|GBP|INR|CAD|AUD|CNY|JPY|CHF)\b`, 0.8, NormalizeCurrency),
				Regex(`(?i)\b(dollars|euros|pounds|rupees)\b`, 0.7, NormalizeCurrency),
				Regex(`([$€£₹¥])[ \t]*\d`, 0.7, NormalizeCurrency),
			},
		},
		{
			Name: "total_amount", Category: c.CategoryFinancial, Group: c.GroupFinancial, Type: TypeNumber,
			Required: true, Severity: c.SeverityMedium,
			Description: "Grand total payable, including tax.",
			Competitors: []string{"contract_value"},
			Matchers: []Matcher{
				Regex(`(?i)\b(?:grand[ \t]+total|total[ \t]+(?:amount[ \t]+)?due|amount[ \t]+due|balance[ \t]+due)`+sep+moneyPat, 0.95, ParseTotal),
				Regex(`(?im)^[ \t]*total(?:[ \t]+amount)?[ \t]*[:\-]?[ \t]*`+moneyPat, 0.9, ParseTotal),
				Regex(`(?i)\btotal[ \t]+amount`+sep+moneyPat, 0.85, ParseTotal),
			},
		},
		{
			Name: "line_items", Category: c.CategoryFinancial, Group: c.GroupFinancial, Type: TypeList,
			Severity:    c.SeverityLow,
			Description: "Itemised charges: description, quantity, unit price, currency and line total.",
			Matchers: []Matcher{
				LineItemTable(0.9),
			},
		},
		{
			Name: "subtotal", Category: c.CategoryFinancial, Group: c.GroupFinancial, Type: TypeNumber,
			Severity:    c.SeverityLow,
			Description: "Amount before tax.",
			Matchers: []Matcher{
				Regex(`(?i)\bsub[ \t\-]?total`+sep+moneyPat, 0.9, ParseMoney),
			},
		},
		{
			Name: "tax_amount", Category: c.CategoryFinancial, Group: c.GroupFinancial, Type: TypeNumber,
			Severity:    c.SeverityLow,
			Description: "Tax (sales tax, VAT, GST) charged.",
			Matchers: []Matcher{
				Regex(`(?i)\b(?:sales[ \t]+)?(?:tax|vat|gst)(?:[ \t]+amount)?(?:[ \t]*\(\d+(?:\.\d+)?[ \t]*%\))?[ \t]*:[ \t]*`+moneyPat, 0.85, ParseMoney),
			},
		},
		{
			Name: "payment_terms", Category: c.CategoryFinancial, Group: c.GroupPaymentTerms, Type: TypeString,
			Required: true, Severity: c.SeverityHigh,
			Description: "When payment is due, e.g. Net 30 or due on receipt.",
			Matchers: []Matcher{
				Label(0.85, CleanText, "Payment Terms", "Terms of Payment"),
				Regex(`(?i)\b(net[ \t]+\d{1,3})\b`, 0.8, CleanText),
				Regex(`(?i)\b(due[ \t]+(?:up)?on[ \t]+receipt)\b`, 0.8, CleanText),
				Regex(`(?i)\bpayments?[ \t]+(?:is[ \t]+|are[ \t]+|shall[ \t]+be[ \t]+)?due[ \t]+(within[ \t]+\d{1,3}[ \t]+(?:calendar[ \t]+|business[ \t]+)?days[^.\n]*)`, 0.7, CleanText),
			},
		},
		{
			Name: "payment_net_days", Category: c.CategoryFinancial, Group: c.GroupPaymentTerms, Type: TypeNumber,
			Required: true, Severity: c.SeverityMedium,
			Description: "Number of days allowed for payment.",
			Matchers: []Matcher{
				Regex(`(?i)\bnet[ \t]*(\d{1,3})\b`, 0.9, ParseNumber),
				Regex(`(?i)\bpayments?[ \t]+(?:is[ \t]+|shall[ \t]+be[ \t]+)?due[ \t]+(?:within[ \t]+)?(\d{1,3})[ \t]+(?:calendar[ \t]+)?days`, 0.8, ParseNumber),
				Regex(`(?i)\b(?:within|in)[ \t]+(\d{1,3})[ \t]+(?:calendar[ \t]+)?days[ \t]+(?:of|from|after)[ \t]+(?:the[ \t]+)?(?:invoice|receipt)`, 0.8, ParseNumber),
			},
		},
		{
			Name: "payment_methods", Category: c.CategoryFinancial, Group: c.GroupPaymentTerms, Type: TypeString,
			Required: true, Severity: c.SeverityMedium,
			Description: "Accepted payment methods, e.g. ACH or wire transfer.",
			Matchers: []Matcher{
				Label(0.9, PaymentMethods, "Payment Methods", "Payment Method", "Accepted Payment Methods", "Payment Options"),
				Regex(`(?i)\bpay(?:ment)?s?[ \t]+(?:shall[ \t]+be[ \t]+|will[ \t]+be[ \t]+|are[ \t]+)?(?:made|accepted|remitted)[ \t]+(?:by|via|through)[ \t]+([^.\n]+)`, 0.75, PaymentMethods),
			},
		},
		{
			Name: "billing_frequency", Category: c.CategoryFinancial, Group: c.GroupPaymentTerms, Type: TypeString,
			Severity:    c.SeverityLow,
			Description: "How often invoices are issued.",
			Matchers: []Matcher{
				Label(0.85, Lower, "Billing Frequency", "Billing Cycle", "Invoicing Frequency"),
				Regex(`(?i)\b(monthly|quarterly|annually|yearly|weekly|bi-weekly|semi-annually)[ \t]+(?:billing|payment|invoice)[ \t]+(?:schedule|cycle|frequency)`, 0.8, Lower),
				Regex(`(?i)\b(?:billed|invoiced)[ \t]+(monthly|quarterly|annually|yearly|weekly)\b`, 0.8, Lower),
			},
		},
		{
			Name: "late_fee_percentage", Category: c.CategoryFinancial, Group: c.GroupPaymentTerms, Type: TypeNumber,
			Severity:    c.SeverityLow,
			Description: "Late payment fee or interest, in percent.",
			Matchers: []Matcher{
				Regex(`(?i)\blate[ \t]+(?:payment[ \t]+)?(?:fee|charge|penalty|interest)[^.\n%]*?(\d{1,2}(?:\.\d+)?)[ \t]*%`, 0.9, ParsePercent),
				Regex(`(?i)\b(\d{1,2}(?:\.\d+)?)[ \t]*%[^.\n]*?\b(?:overdue|late|past[ \t]+due)\b`, 0.8, ParsePercent),
			},
		},
		{
			Name: "late_fee_amount", Category: c.CategoryFinancial, Group: c.GroupPaymentTerms, Type: TypeNumber,
			Severity:    c.SeverityLow,
			Description: "Flat late payment fee.",
			Matchers: []Matcher{
				Regex(`(?i)\blate[ \t]+(?:payment[ \t]+)?(?:fee|charge|penalty)[ \t]+(?:of[ \t]+)?`+strictMoneyPat, 0.85, ParseMoney),
			},
		},
		{
			Name: "deposit_amount", Category: c.CategoryFinancial, Group: c.GroupFinancial, Type: TypeNumber,
			Severity:    c.SeverityLow,
			Description: "Upfront or security deposit.",
			Matchers: []Matcher{
				Regex(`(?i)\b(?:security[ \t]+|upfront[ \t]+)?deposit(?:[ \t]+amount)?[ \t]*(?:of|:)?[ \t]*`+strictMoneyPat, 0.8, ParseMoney),
			},
		},

		// dates
		{
			Name: "effective_date", Category: c.CategoryDates, Type: TypeDate,
			Required: true, Severity: c.SeverityHigh,
			Description: "Date the agreement takes effect.",
			Competitors: []string{"termination_date", "execution_date"},
			Matchers: []Matcher{
				Regex(`(?i)\b(?:effective|commencement|start)[ \t]+date`+sep+datePat, 0.7, ParseDate),
				Regex(`(?i)\beffective[ \t]+(?:as[ \t]+of|on|from)[ \t]+`+datePat, 0.7, ParseDate),
				Regex(`(?i)\bshall[ \t]+commence[ \t]+on[ \t]+`+datePat, 0.7, ParseDate),
				Regex(`(?i)\b(?:contract|agreement)[ \t]+date`+sep+datePat, 0.65, ParseDate),
				Regex(`(?i)\b(?:agreement[ \t]+)?(?:dated|entered[ \t]+into[ \t]+on)[ \t]+(?:as[ \t]+of[ \t]+)?`+datePat, 0.6, ParseDate),
			},
		},
		{
			Name: "execution_date", Category: c.CategoryDates, Type: TypeDate,
			Severity:    c.SeverityLow,
			Description: "Date the agreement was signed.",
			Competitors: []string{"effective_date"},
			Matchers: []Matcher{
				Regex(`(?i)\bdate[ \t]+of[ \t]+execution`+sep+datePat, 0.75, ParseDate),
				Regex(`(?i)\b(?:executed|signed)[ \t]+(?:this|on)[ \t]+`+datePat, 0.7, ParseDate),
			},
		},
		{
			Name: "termination_date", Category: c.CategoryDates, Type: TypeDate,
			Required: true, Severity: c.SeverityMedium,
			Description: "Date the agreement ends unless renewed.",
			Competitors: []string{"effective_date"},
			Matchers: []Matcher{
				Regex(`(?i)\b(?:termination|expiration|expiry|end)[ \t]+date`+sep+datePat, 0.75, ParseDate),
				Regex(`(?i)\b(?:terminates|expires|ends)[ \t]+(?:on[ \t]+)?`+datePat, 0.7, ParseDate),
				Regex(`(?i)\b(?:valid|continue|remain[ \t]+in[ \t]+effect)[ \t]+(?:until|through)[ \t]+`+datePat, 0.65, ParseDate),
				Regex(`(?i)\b(?:until|through)[ \t]+`+datePat, 0.5, ParseDate),
			},
		},
		{
			Name: "contract_term", Category: c.CategoryDates, Type: TypeString,
			Severity:    c.SeverityLow,
			Description: "Length of the initial term, e.g. 24 months.",
			Competitors: []string{"renewal_term"},
			Matchers: []Matcher{
				Regex(`(?im)^[ \t]*(?:initial[ \t]+|contract[ \t]+)?term`+sep+durationPat, 0.85, NormalizeDuration),
				Regex(`(?i)\bfor[ \t]+an?[ \t]+(?:initial[ \t]+)?(?:term|period)[ \t]+of[ \t]+`+durationPat, 0.8, NormalizeDuration),
				Regex(`(?i)\b(\d{1,3}[ \t-](?:month|year)s?)[ \t]+(?:initial[ \t]+)?(?:term|period|contract|agreement)\b`, 0.7, NormalizeDuration),
			},
		},
		{
			Name: "renewal_term", Category: c.CategoryDates, Type: TypeString,
			Severity:    c.SeverityLow,
			Description: "Length of each renewal period.",
			Competitors: []string{"contract_term"},
			Matchers: []Matcher{
				Regex(`(?i)\brenewal[ \t]+(?:term|period)`+sep+`(?:of[ \t]+)?`+durationPat, 0.8, NormalizeDuration),
				Regex(`(?i)\b(?:successive|additional)[ \t]+(?:renewal[ \t]+)?(?:term|period)s?[ \t]+of[ \t]+`+durationPat, 0.75, NormalizeDuration),
				Regex(`(?i)\brenew[^.\n]*?\bfor[ \t]+(?:an?[ \t]+)?(?:additional[ \t]+)?`+durationPat, 0.65, NormalizeDuration),
			},
		},
		{
			Name: "notice_period", Category: c.CategoryDates, Group: c.GroupPaymentTerms, Type: TypeString,
			Required: true, Severity: c.SeverityMedium,
			Description: "Notice required to terminate or prevent renewal.",
			Matchers: []Matcher{
				Regex(`(?i)\bnotice[ \t]+(?:period|of)`+sep+`(?:at[ \t]+least[ \t]+)?(\d{1,3}[ \t]+days?)`, 0.8, NormalizeDuration),
				Regex(`(?i)\b(\d{1,3}[ \t]+days?)'?[ \t]+(?:prior[ \t]+|advance[ \t]+)?(?:written[ \t]+)?notice\b`, 0.8, NormalizeDuration),
			},
		},
		{
			Name: "invoice_date", Category: c.CategoryDates, Type: TypeDate,
			Severity:    c.SeverityLow,
			Description: "Date an invoice was issued.",
			Competitors: []string{"due_date"},
			Matchers: []Matcher{
				Label(0.9, ParseDate, "Invoice Date", "Date of Invoice", "Invoice Dated"),
				Regex(`(?i)\binvoice[ \t]+date`+sep+datePat, 0.85, ParseDate),
			},
		},
		{
			Name: "due_date", Category: c.CategoryDates, Type: TypeDate,
			Severity:    c.SeverityLow,
			Description: "Date payment is due.",
			Competitors: []string{"invoice_date"},
			Matchers: []Matcher{
				Label(0.9, ParseDate, "Due Date", "Payment Due Date", "Payment Due"),
				Regex(`(?i)\bdue[ \t]+(?:date|on|by)`+sep+datePat, 0.8, ParseDate),
			},
		},

		// legal
		{
			Name: "governing_law", Category: c.CategoryLegal, Type: TypeString,
			Required: true, Severity: c.SeverityMedium,
			Description: "Jurisdiction whose law governs the agreement.",
			Matchers: []Matcher{
				Regex(`(?im)\bgoverned[ \t]+by[ \t]+(?:and[ \t]+construed[ \t]+in[ \t]+accordance[ \t]+with[ \t]+)?(?:the[ \t]+)?laws?[ \t]+of[ \t]+(?:the[ \t]+)?(?:state[ \t]+of[ \t]+|commonwealth[ \t]+of[ \t]+)?([A-Za-z][A-Za-z ]+?)(?:[.,;]|[ \t]+without\b|[ \t]*$)`, 0.85, CleanName),
				Regex(`(?im)\blaws?[ \t]+of[ \t]+(?:the[ \t]+)?(?:state[ \t]+of[ \t]+)?([A-Za-z][A-Za-z ]+?)[ \t]+(?:shall[ \t]+)?(?:apply|govern)`, 0.7, CleanName),
				Label(0.7, CleanName, "Governing Law", "Applicable Law", "Jurisdiction"),
			},
		},
		{
			Name: "liability_cap", Category: c.CategoryLegal, Group: c.GroupSLA, Type: TypeNumber,
			Required: true, Severity: c.SeverityMedium,
			Description: "Maximum aggregate liability amount.",
			Matchers: []Matcher{
				Regex(`(?i)\bliability[^.\n]*?(?:shall[ \t]+not[ \t]+exceed|not[ \t]+to[ \t]+exceed|limited[ \t]+to|capped[ \t]+at|up[ \t]+to)[ \t]+(?:a[ \t]+maximum[ \t]+of[ \t]+)?`+strictMoneyPat, 0.85, ParseMoney),
				Regex(`(?i)\b(?:maximum|aggregate|total)[ \t]+(?:aggregate[ \t]+)?liability[^.\n]*?`+strictMoneyPat, 0.8, ParseMoney),
				Regex(`(?i)\b(?:liability[ \t]+cap|cap[ \t]+on[ \t]+liability)`+sep+strictMoneyPat, 0.8, ParseMoney),
			},
		},
		{
			Name: "confidentiality", Category: c.CategoryLegal, Type: TypeBool,
			Severity:    c.SeverityLow,
			Description: "Whether a confidentiality obligation exists.",
			Matchers: []Matcher{
				Keyword(0.85, `\bconfidential(?:ity)?[ \t]+(?:clause|provision|obligations?|information)\b`, `\bnon-disclosure\b`, `\bshall[ \t]+(?:keep|maintain|treat[ \t]+as)[ \t]+confidential`),
				Keyword(0.6, `\bconfidential(?:ity)?\b`),
			},
		},
		{
			Name: "auto_renewal", Category: c.CategoryLegal, Type: TypeBool,
			Required: true, Severity: c.SeverityMedium,
			Description: "Whether the agreement renews automatically.",
			Matchers: []Matcher{
				Label(0.9, ParseBool, "Auto-Renewal", "Auto Renewal", "Automatic Renewal", "Renewal"),
				Keyword(0.85, `\bautomatic(?:ally)?[ \t]+renew`, `\bauto[- ]?renew`),
				Keyword(0.7, `\brenew(?:s|ed)?[ \t]+(?:for[ \t]+)?(?:additional|successive)[ \t]+(?:terms?|periods?)`),
			},
		},
		{
			Name: "termination_for_convenience", Category: c.CategoryLegal, Type: TypeBool,
			Severity:    c.SeverityLow,
			Description: "Whether a party may terminate without cause.",
			Matchers: []Matcher{
				Keyword(0.8, `\bterminat\w*[ \t]+(?:this[ \t]+agreement[ \t]+)?for[ \t]+(?:its[ \t]+)?convenience`, `\bterminate[^.\n]*?\bwithout[ \t]+cause`),
				Keyword(0.65, `\beither[ \t]+party[ \t]+may[ \t]+terminate`),
			},
		},
		{
			Name: "termination_for_cause", Category: c.CategoryLegal, Type: TypeBool,
			Severity:    c.SeverityLow,
			Description: "Whether a party may terminate for breach.",
			Matchers: []Matcher{
				Keyword(0.8, `\bterminat\w*[ \t]+(?:this[ \t]+agreement[ \t]+)?for[ \t]+cause`),
				Keyword(0.7, `\bmaterial[ \t]+breach[^.\n]*?\bterminat`, `\bterminat[^.\n]*?\bmaterial[ \t]+breach`),
			},
		},
		{
			Name: "indemnification", Category: c.CategoryLegal, Type: TypeBool,
			Severity:    c.SeverityLow,
			Description: "Whether an indemnity clause exists.",
			Matchers: []Matcher{
				Keyword(0.8, `\bindemnif(?:y|ies|ied|ication)\b`, `\bhold[ \t]+harmless\b`),
			},
		},
		{
			Name: "dispute_resolution", Category: c.CategoryLegal, Type: TypeString,
			Severity:    c.SeverityLow,
			Description: "Dispute resolution mechanism.",
			Matchers: []Matcher{
				Regex(`(?i)\b(binding[ \t]+arbitration|arbitration|mediation)\b`, 0.75, Lower),
			},
		},
		{
			Name: "force_majeure", Category: c.CategoryLegal, Type: TypeBool,
			Severity:    c.SeverityLow,
			Description: "Whether a force majeure clause exists.",
			Matchers: []Matcher{
				Keyword(0.85, `\bforce[ \t]+majeure\b`),
			},
		},

		// sla
		{
			Name: "sla_uptime", Category: c.CategorySLA, Group: c.GroupSLA, Type: TypeNumber,
			Required: true, Severity: c.SeverityMedium,
			Description: "Committed uptime or availability, in percent.",
			Matchers: []Matcher{
				Regex(`(?i)\b(\d{2,3}(?:\.\d+)?)[ \t]*%[ \t]+(?:uptime|availability)\b`, 0.85, ParsePercent),
				Regex(`(?i)\b(?:uptime|availability)[^.\n]*?(\d{2,3}(?:\.\d+)?)[ \t]*%`, 0.8, ParsePercent),
			},
		},
		{
			Name: "support_hours", Category: c.CategorySLA, Group: c.GroupSLA, Type: TypeString,
			Severity:    c.SeverityLow,
			Description: "Hours during which support is provided.",
			Matchers: []Matcher{
				Regex(`(?i)\b(24[ \t]*[x×/][ \t]*7(?:[ \t]*[x×/][ \t]*365)?)`, 0.8, Lower),
				Regex(`(?i)\bsupport[^.\n]*?\b(\d{1,2}[ \t]*[x×][ \t]*\d)\b`, 0.75, Lower),
				Regex(`(?i)\bbusiness[ \t]+hours[^.\n]*?(\d{1,2}(?::\d{2})?[ \t]*(?:am|pm)?[ \t]*(?:-|to)[ \t]*\d{1,2}(?::\d{2})?[ \t]*(?:am|pm)?)`, 0.7, Lower),
			},
		},
		{
			Name: "response_time", Category: c.CategorySLA, Group: c.GroupSLA, Type: TypeString,
			Severity:    c.SeverityLow,
			Description: "Committed support response time.",
			Matchers: []Matcher{
				Regex(`(?i)\bresponse[ \t]+time[^.\n]*?(\d{1,3}[ \t]*(?:minutes?|mins?|hours?|hrs?|business[ \t]+days?|days?))\b`, 0.8, Lower),
				Regex(`(?i)\brespond[^.\n]*?\bwithin[ \t]+(\d{1,3}[ \t]*(?:minutes?|hours?|business[ \t]+days?|days?))\b`, 0.75, Lower),
			},
		},
		{
			Name: "service_credits", Category: c.CategorySLA, Group: c.GroupSLA, Type: TypeString,
			Severity:    c.SeverityLow,
			Description: "Credit granted when the service level is missed.",
			Matchers: []Matcher{
				Regex(`(?i)\bservice[ \t]+credits?[^.\n]*?(\d{1,3}(?:\.\d+)?[ \t]*%)`, 0.8, CleanText),
			},
		},
	}
}
