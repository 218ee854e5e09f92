package vision

const genericPrompt = `You are an expert at reading Indian identity documents.
Determine if this image is an Aadhaar card or PAN card, then extract all visible fields:
- doc_type: "aadhaar", "pan", or "unknown"
- name: Full name
- aadhaar_number: 12-digit number (if Aadhaar, format: "XXXX XXXX XXXX")
- pan_number: 10-char PAN (if PAN card, e.g. "ABCDE1234F")
- father_name: Father's name (if PAN)
- dob: Date of birth
- gender: male/female/other (if visible)
- address: Full address (if Aadhaar)
- pincode: 6-digit pin (if visible)

Return ONLY a valid JSON object. Use null for missing fields.`

const aadhaarPrompt = `You are an expert at reading Indian Aadhaar identity cards.
Extract all text visible on this Aadhaar card and return a JSON object with these fields:
- doc_type: always "aadhaar"
- name: Full name as printed (Roman script preferred)
- aadhaar_number: The 12-digit Aadhaar number (format: "XXXX XXXX XXXX")
- dob: Date of birth (e.g. "01/01/1990")
- gender: "male", "female", or "other"
- address: Full address if visible
- pincode: 6-digit pin code if visible

Return ONLY a valid JSON object. Use null for missing fields.`

const panPrompt = `You are an expert at reading Indian PAN (Permanent Account Number) cards.
Extract all text visible on this PAN card and return a JSON object with these fields:
- doc_type: always "pan"
- name: Full name of the card holder (all caps, Roman script)
- father_name: Father's name as printed
- pan_number: The 10-character PAN (e.g. "ABCDE1234F")
- dob: Date of birth (e.g. "01/01/1990")

Return ONLY a valid JSON object. Use null for missing fields.`

const facePrompt = `You are an expert at comparing faces for identity verification.
The first image is a live selfie. The second image is an identity document with a printed photo.
Decide whether the selfie and the document photo show the same person, tolerating
differences in lighting, age, and print quality. Return a JSON object:
- verified: true or false
- confidence: 0-100 integer, how confident you are in the verdict
- reason: one short sentence explaining the verdict

Return ONLY a valid JSON object.`
